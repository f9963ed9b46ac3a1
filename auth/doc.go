// Package auth verifies and creates presigned URLs for private media.
//
// Presigned URLs use AWS Signature Version 4 query authentication, so any S3
// compatible SDK can generate them as well. The verified access key becomes
// the subject of the request's privatemedia.Identity.
//
// Secret keys are looked up through a SecretStore:
//
//	store, err := auth.NewSecretStore(auth.KeysConfig{File: "keys.yaml"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	verifier := auth.NewSignatureVerifier("us-east-1", "s3", store)
//	subject, err := verifier.Verify(r.Method, r.URL.Path, r.URL.Query(), headers)
package auth
