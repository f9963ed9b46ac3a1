// Package config provides configuration loading and validation for privatemedia.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (PRIVATEMEDIA_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = config.WithContext(ctx, cfg)
//
//	serverCfg, err := cfg.ServerConfig()
//
// # Environment Variables
//
// All config keys map to environment variables with PRIVATEMEDIA_ prefix:
//   - server.port → PRIVATEMEDIA_SERVER_PORT
//   - media.backend → PRIVATEMEDIA_MEDIA_BACKEND
//   - permissions.policy → PRIVATEMEDIA_PERMISSIONS_POLICY
//
// # Example
//
//	server:
//	  port: 5708
//	  url_prefix: /private-media
//	media:
//	  root: /srv/media
//	  backend: x-accel-redirect
//	  internal_url: /protected
//	auth:
//	  mode: signature
//	  keys:
//	    file: /etc/privatemedia/keys.yaml
//	permissions:
//	  policy: grants
//	database:
//	  type: postgres
//	  dsn: postgres://media@localhost/media
package config
