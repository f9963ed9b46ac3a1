package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/privatemedia"
	"github.com/sagarc03/privatemedia/filesystem"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [flags] <path1> [path2] ...",
	Short: "Show how request paths are served",
	Long: `Resolve request paths against the media root and print the file they
map to and the headers the configured backend would send. Permissions
are not checked.

Examples:
  # Check where a path lands
  privatemedia resolve docs/report.pdf

  # Inspect the X-Accel-Redirect header nginx would receive
  privatemedia resolve --backend x-accel-redirect docs/report.pdf

  # Machine readable output
  privatemedia resolve --json docs/a.pdf ../etc/passwd`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

var (
	resolveJSON     bool
	resolveDownload bool
)

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "output JSON")
	resolveCmd.Flags().BoolVar(&resolveDownload, "download", false, "force Content-Disposition: attachment")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	serverCfg, err := cfg.ServerConfig()
	if err != nil {
		return fmt.Errorf("invalid media config: %w", err)
	}

	root, err := os.OpenRoot(serverCfg.RootDirectory)
	if err != nil {
		return fmt.Errorf("open media root: %w", err)
	}
	defer func() { _ = root.Close() }()

	backend, err := privatemedia.NewBackend(serverCfg, filesystem.NewFileStorage(root))
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	var download *bool
	if cmd.Flags().Changed("download") {
		download = &resolveDownload
	}

	results := make([]ResolveResult, 0, len(args))
	for _, p := range args {
		results = append(results, resolvePath(cmd.Context(), serverCfg, backend, p, download))
	}

	return NewFormatter(resolveJSON, false).FormatResolve(cmd.OutOrStdout(), results)
}

// resolvePath runs p through the resolver and backend without a permission
// check.
func resolvePath(ctx context.Context, cfg privatemedia.ServerConfig, backend privatemedia.Backend, p string, download *bool) ResolveResult {
	result := ResolveResult{Path: p}

	res, err := privatemedia.Resolve(p, cfg)
	if err != nil {
		result.Status = privatemedia.StatusNotFound.String()
		result.Err = err
		return result
	}

	result.RelativePath = res.RelativePath
	result.AbsolutePath = res.AbsolutePath
	result.ContentType = res.ContentType

	resp, err := backend.Serve(ctx, privatemedia.ResourceRequest{RelativePath: p, ForceDownload: download}, res)
	if err != nil {
		result.Status = privatemedia.StatusServerError.String()
		if errors.Is(err, privatemedia.ErrNotFound) {
			result.Status = privatemedia.StatusNotFound.String()
		}
		result.Err = err
		return result
	}
	defer func() { _ = resp.Close() }()

	result.Status = resp.Status.String()
	result.Headers = make(map[string]string, resp.Headers.Len())
	for key, value := range resp.Headers.All() {
		result.Headers[key] = value
		result.headerOrder = append(result.headerOrder, key)
	}

	return result
}
