package main

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/privatemedia"
	"github.com/sagarc03/privatemedia/auth"
)

var presignCmd = &cobra.Command{
	Use:   "presign [flags] <path>",
	Short: "Print a presigned URL for a file",
	Long: `Print a URL that lets its holder read one file until it expires. The
URL is signed with AWS Signature V4 using a key from auth.keys; the
server must run with auth.mode: signature and a permission policy that
allows the access key as subject.

Examples:
  privatemedia presign docs/report.pdf
  privatemedia presign --host media.example.com --scheme https --expires 1h docs/report.pdf
  privatemedia presign --download docs/report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runPresign,
}

var (
	presignHost      string
	presignScheme    string
	presignAccessKey string
	presignExpires   time.Duration
	presignMethod    string
	presignDownload  bool
	presignJSON      bool
)

func init() {
	presignCmd.Flags().StringVar(&presignHost, "host", "", "host the URL is used against (default: localhost:<server.port>)")
	presignCmd.Flags().StringVar(&presignScheme, "scheme", "http", "URL scheme")
	presignCmd.Flags().StringVar(&presignAccessKey, "access-key", "", "access key to sign with (default: the only configured key)")
	presignCmd.Flags().DurationVar(&presignExpires, "expires", 15*time.Minute, "how long the URL stays valid (max 168h)")
	presignCmd.Flags().StringVar(&presignMethod, "method", "GET", "HTTP method the URL is valid for")
	presignCmd.Flags().BoolVar(&presignDownload, "download", false, "sign download=true|false into the URL")
	presignCmd.Flags().BoolVar(&presignJSON, "json", false, "output JSON")
	rootCmd.AddCommand(presignCmd)
}

func runPresign(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	if !privatemedia.IsValidPath(args[0]) {
		return fmt.Errorf("invalid path: %s", args[0])
	}

	store, err := auth.NewSecretStore(cfg.Auth.Keys)
	if err != nil {
		return fmt.Errorf("load access keys: %w", err)
	}

	pair, err := selectKey(store, presignAccessKey)
	if err != nil {
		return err
	}

	host := presignHost
	if host == "" {
		host = fmt.Sprintf("localhost:%d", cfg.Server.Port)
	}

	var extra url.Values
	if cmd.Flags().Changed("download") {
		extra = url.Values{"download": []string{boolParam(presignDownload)}}
	}

	requestPath := mediaURLPath(cfg.Server.URLPrefix, args[0])

	query, err := auth.Presign(pair.SecretKey, pair.AccessKey, auth.PresignOptions{
		Method:  strings.ToUpper(presignMethod),
		Path:    requestPath,
		Host:    host,
		Region:  cfg.Auth.AWS.Region,
		Service: cfg.Auth.AWS.Service,
		Expires: presignExpires,
		Query:   extra,
	})
	if err != nil {
		return err
	}

	u := url.URL{
		Scheme:   presignScheme,
		Host:     host,
		Path:     requestPath,
		RawQuery: query.Encode(),
	}

	return NewFormatter(presignJSON, false).FormatPresign(cmd.OutOrStdout(), u.String())
}

// selectKey picks the named key, or the only configured key when none is named.
func selectKey(store *auth.MapSecretStore, accessKey string) (auth.KeyPair, error) {
	if accessKey != "" {
		secret, err := store.Lookup(accessKey)
		if err != nil {
			return auth.KeyPair{}, err
		}
		return auth.KeyPair{AccessKey: accessKey, SecretKey: secret}, nil
	}

	switch store.Len() {
	case 0:
		return auth.KeyPair{}, errors.New("no access keys configured in auth.keys")
	case 1:
		pair, _ := store.First()
		return pair, nil
	default:
		return auth.KeyPair{}, errors.New("several access keys configured; choose one with --access-key")
	}
}

// mediaURLPath joins the URL prefix and a media path the way the handler
// splits them.
func mediaURLPath(prefix, p string) string {
	return path.Join("/", prefix, p)
}

func boolParam(b bool) string {
	return strconv.FormatBool(b)
}
