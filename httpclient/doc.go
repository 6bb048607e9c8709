// Package httpclient is the outbound HTTP client shared by the remote
// backends: the pyannote sidecar and the LLM providers.
//
// Failures come back as module errors so callers can route on them
// directly: transport failures, 429 and 5xx answers are transient backend
// errors; other non-2xx answers are permanent; a canceled context is
// returned as the context's own error.
//
//	client, err := httpclient.New(httpclient.Config{
//	    Name:    "pyannote",
//	    BaseURL: "http://localhost:8388",
//	    Auth:    httpclient.BearerAuth(token),
//	})
//	resp, err := client.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/diarize", Body: form})
package httpclient
