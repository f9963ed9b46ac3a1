package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sagarc03/privatemedia"
)

const (
	SignatureAlgorithm = "AWS4-HMAC-SHA256"
	MaxExpiresSeconds  = 604800 // 7 days
	DateTimeFormat     = "20060102T150405Z"
	DateFormat         = "20060102"

	unsignedPayload = "UNSIGNED-PAYLOAD"
	credentialTerm  = "aws4_request"
)

// Query parameter names of a presigned URL.
const (
	ParamAlgorithm     = "X-Amz-Algorithm"
	ParamCredential    = "X-Amz-Credential"
	ParamDate          = "X-Amz-Date"
	ParamExpires       = "X-Amz-Expires"
	ParamSignedHeaders = "X-Amz-SignedHeaders"
	ParamSignature     = "X-Amz-Signature"
)

// SecretStore looks up the secret key belonging to an access key.
type SecretStore interface {
	// Lookup returns an error wrapping ErrKeyNotFound when the access key is unknown.
	Lookup(accessKey string) (secretKey string, err error)
}

// SignatureVerifier verifies AWS Signature V4 presigned URLs.
type SignatureVerifier struct {
	Region  string
	Service string
	// Now returns the current time; nil means time.Now.
	Now   func() time.Time
	store SecretStore
}

// NewSignatureVerifier creates a new signature verifier.
//
// Parameters:
//   - region: AWS region (e.g., "us-east-1")
//   - service: AWS service name (e.g., "s3")
//   - store: where secret keys are looked up by access key
func NewSignatureVerifier(region, service string, store SecretStore) *SignatureVerifier {
	return &SignatureVerifier{
		Region:  region,
		Service: service,
		store:   store,
	}
}

// HasSignature reports whether query carries any presigned URL parameter.
// Requests without one are anonymous rather than unauthorized.
func HasSignature(query url.Values) bool {
	return query.Has(ParamSignature) || query.Has(ParamCredential) || query.Has(ParamAlgorithm)
}

// Verify verifies an AWS Signature V4 presigned URL and returns the access key
// it was signed with. path is the decoded request path; it is URI-encoded
// the way S3 clients encode object keys before it is signed.
//
// Required query parameters:
//   - X-Amz-Algorithm: Must be "AWS4-HMAC-SHA256"
//   - X-Amz-Credential: Format "access_key/date/region/service/aws4_request"
//   - X-Amz-Date: ISO8601 timestamp (YYYYMMDDTHHMMSSZ)
//   - X-Amz-Expires: Validity duration in seconds (1-604800)
//   - X-Amz-SignedHeaders: Semicolon-separated list of signed headers
//   - X-Amz-Signature: Hex-encoded HMAC-SHA256 signature
//
// The function performs the following validations:
//  1. Presence of all required parameters
//  2. Correct algorithm (AWS4-HMAC-SHA256)
//  3. Valid timestamp format
//  4. Expiration within allowed range (1 second to 7 days)
//  5. Request not expired (current time before timestamp + expires)
//  6. Credential format and component matching (date, region, service)
//  7. Access key exists in the SecretStore
//  8. Signature matches calculated signature
//
// Every returned error wraps privatemedia.ErrUnauthorized.
func (v *SignatureVerifier) Verify(method, path string, query url.Values, headers http.Header) (string, error) {
	params, err := extractParams(query)
	if err != nil {
		return "", err
	}

	if err := v.validateParams(params); err != nil {
		return "", err
	}

	secretKey, err := v.store.Lookup(params.accessKey)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return "", fmt.Errorf("access key not found: %w", privatemedia.ErrUnauthorized)
		}
		return "", fmt.Errorf("lookup access key: %w: %w", privatemedia.ErrUnauthorized, err)
	}

	expectedSignature := calculateSignature(secretKey, method, path, query, headers, params)

	if !hmac.Equal([]byte(expectedSignature), []byte(params.signature)) {
		return "", fmt.Errorf("signature mismatch: %w", privatemedia.ErrUnauthorized)
	}

	return params.accessKey, nil
}

type signatureParams struct {
	algorithm     string
	accessKey     string
	dateStamp     string
	region        string
	service       string
	requestTime   time.Time
	expires       int
	signedHeaders string
	signature     string
}

func extractParams(query url.Values) (*signatureParams, error) {
	amzAlgorithm := query.Get(ParamAlgorithm)
	amzCredential := query.Get(ParamCredential)
	amzDate := query.Get(ParamDate)
	amzExpires := query.Get(ParamExpires)
	amzSignedHeaders := query.Get(ParamSignedHeaders)
	amzSignature := query.Get(ParamSignature)

	if amzAlgorithm == "" || amzCredential == "" || amzDate == "" ||
		amzExpires == "" || amzSignedHeaders == "" || amzSignature == "" {
		return nil, fmt.Errorf("missing required signature parameters: %w", privatemedia.ErrUnauthorized)
	}

	requestTime, err := time.Parse(DateTimeFormat, amzDate)
	if err != nil {
		return nil, fmt.Errorf("invalid X-Amz-Date format: %w", privatemedia.ErrUnauthorized)
	}

	expires, err := strconv.Atoi(amzExpires)
	if err != nil || expires <= 0 || expires > MaxExpiresSeconds {
		return nil, fmt.Errorf("invalid X-Amz-Expires: must be between 1 and %d: %w", MaxExpiresSeconds, privatemedia.ErrUnauthorized)
	}

	credParts := strings.Split(amzCredential, "/")
	if len(credParts) != 5 {
		return nil, fmt.Errorf("invalid X-Amz-Credential format: %w", privatemedia.ErrUnauthorized)
	}

	if credParts[4] != credentialTerm {
		return nil, fmt.Errorf("invalid credential terminator: expected aws4_request: %w", privatemedia.ErrUnauthorized)
	}

	return &signatureParams{
		algorithm:     amzAlgorithm,
		accessKey:     credParts[0],
		dateStamp:     credParts[1],
		region:        credParts[2],
		service:       credParts[3],
		requestTime:   requestTime,
		expires:       expires,
		signedHeaders: amzSignedHeaders,
		signature:     amzSignature,
	}, nil
}

func (v *SignatureVerifier) validateParams(params *signatureParams) error {
	if params.algorithm != SignatureAlgorithm {
		return fmt.Errorf("invalid algorithm: expected %s, got %s: %w", SignatureAlgorithm, params.algorithm, privatemedia.ErrUnauthorized)
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	if now().After(params.requestTime.Add(time.Duration(params.expires) * time.Second)) {
		return fmt.Errorf("signature expired: %w", privatemedia.ErrUnauthorized)
	}

	expectedDate := params.requestTime.Format(DateFormat)
	if params.dateStamp != expectedDate {
		return fmt.Errorf("credential date mismatch: %w", privatemedia.ErrUnauthorized)
	}

	if params.region != v.Region {
		return fmt.Errorf("region mismatch: expected %s, got %s: %w", v.Region, params.region, privatemedia.ErrUnauthorized)
	}

	if params.service != v.Service {
		return fmt.Errorf("service mismatch: expected %s, got %s: %w", v.Service, params.service, privatemedia.ErrUnauthorized)
	}

	return nil
}

func calculateSignature(secretKey, method, path string, query url.Values, headers http.Header, p *signatureParams) string {
	canonicalRequest := buildCanonicalRequest(method, path, query, headers, p.signedHeaders)

	credentialScope := fmt.Sprintf("%s/%s/%s/%s", p.dateStamp, p.region, p.service, credentialTerm)
	stringToSign := buildStringToSign(p.requestTime, credentialScope, canonicalRequest)

	signingKey := deriveSigningKey(secretKey, p.dateStamp, p.region, p.service)

	return hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))
}

func buildCanonicalRequest(method, path string, query url.Values, headers http.Header, signedHeaders string) string {
	return strings.Join([]string{
		method,
		uriEncode(path, false),
		buildCanonicalQueryString(query),
		buildCanonicalHeaders(headers, signedHeaders),
		signedHeaders,
		unsignedPayload,
	}, "\n")
}

// buildCanonicalHeaders formats the signed headers as sorted "name:value\n" lines.
func buildCanonicalHeaders(headers http.Header, signedHeaders string) string {
	headerNames := strings.Split(signedHeaders, ";")
	slices.Sort(headerNames)

	var result strings.Builder
	for _, name := range headerNames {
		result.WriteString(name)
		result.WriteString(":")
		result.WriteString(strings.TrimSpace(headers.Get(name)))
		result.WriteString("\n")
	}
	return result.String()
}

// buildCanonicalQueryString encodes every parameter but the signature,
// sorted by encoded key and then by encoded value.
func buildCanonicalQueryString(query url.Values) string {
	type pair struct{ key, value string }

	pairs := make([]pair, 0, len(query))
	for k, values := range query {
		if k == ParamSignature {
			continue
		}
		key := uriEncode(k, true)
		for _, v := range values {
			pairs = append(pairs, pair{key: key, value: uriEncode(v, true)})
		}
	}

	slices.SortFunc(pairs, func(a, b pair) int {
		if c := strings.Compare(a.key, b.key); c != 0 {
			return c
		}
		return strings.Compare(a.value, b.value)
	})

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}
	return b.String()
}

// uriEncode percent-encodes every byte outside the RFC 3986 unreserved set
// with upper-case hex, so a space becomes %20. Slashes are kept unless
// encodeSlash is set.
func uriEncode(s string, encodeSlash bool) string {
	const upperHex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		case c == '/' && !encodeSlash:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&0x0f])
		}
	}
	return b.String()
}

func buildStringToSign(requestTime time.Time, credentialScope, canonicalRequest string) string {
	return strings.Join([]string{
		SignatureAlgorithm,
		requestTime.Format(DateTimeFormat),
		credentialScope,
		sha256Hash(canonicalRequest),
	}, "\n")
}

func deriveSigningKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte(credentialTerm))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
