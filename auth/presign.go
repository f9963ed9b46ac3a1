package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"
)

// PresignOptions describes the request a presigned URL is valid for.
type PresignOptions struct {
	Method  string // defaults to GET
	Path    string // request path, e.g. "/private-media/report.pdf"
	Host    string // value of the Host header the client will send
	Region  string
	Service string
	Expires time.Duration
	// Query holds extra parameters (such as "download") that become part of
	// the signed URL.
	Query url.Values
	// Now is the signing time; zero means time.Now().
	Now time.Time
}

// Presign returns the query parameters that authenticate opts.Method on
// opts.Path for opts.Expires. Only the host header is signed.
func Presign(secretKey, accessKey string, opts PresignOptions) (url.Values, error) {
	if secretKey == "" || accessKey == "" {
		return nil, errors.New("presign: access key and secret key are required")
	}

	if opts.Host == "" {
		return nil, errors.New("presign: host is required")
	}

	expires := int(opts.Expires / time.Second)
	if expires <= 0 || expires > MaxExpiresSeconds {
		return nil, fmt.Errorf("presign: expires must be between 1s and %ds", MaxExpiresSeconds)
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	p := &signatureParams{
		algorithm:     SignatureAlgorithm,
		accessKey:     accessKey,
		dateStamp:     now.Format(DateFormat),
		region:        opts.Region,
		service:       opts.Service,
		requestTime:   now,
		expires:       expires,
		signedHeaders: "host",
	}

	query := url.Values{}
	for k, v := range opts.Query {
		query[k] = slices.Clone(v)
	}
	query.Set(ParamAlgorithm, SignatureAlgorithm)
	query.Set(ParamCredential, fmt.Sprintf("%s/%s/%s/%s/%s", accessKey, p.dateStamp, p.region, p.service, credentialTerm))
	query.Set(ParamDate, now.Format(DateTimeFormat))
	query.Set(ParamExpires, strconv.Itoa(expires))
	query.Set(ParamSignedHeaders, p.signedHeaders)

	headers := http.Header{}
	headers.Set("Host", opts.Host)

	query.Set(ParamSignature, calculateSignature(secretKey, method, opts.Path, query, headers, p))

	return query, nil
}
