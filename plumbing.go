package RSClientGo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strconv"
	"syscall"
	"time"
)

// this file is for rsclientgo internal functionality like sending HTTP requests

func (c RSClient) requestContext() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c RSClient) createRequest(method, url string, body []byte, header http.Header) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	request, err := http.NewRequestWithContext(c.requestContext(), method, url, reader)
	if err != nil {
		return nil, err
	}

	for name, headers := range header {
		for _, h := range headers {
			request.Header.Add(name, h)
		}
	}

	if request.Header.Get("User-Agent") == "" {
		request.Header.Set("User-Agent", c.rsUserAgent)
	}
	if body != nil && request.Header.Get("Content-Type") == "" {
		request.Header.Set("Content-Type", "application/json")
	}
	if request.Header.Get("Accept") == "" {
		request.Header.Set("Accept", "application/json")
	}

	// bearer tokens are added by the oauth2 transport
	if !c.bearer {
		request.Header.Set("x-api-key", c.apiKey)
	}

	return request, nil
}

func (c RSClient) sendRequestInternal(method, url string, body []byte, header http.Header) ([]byte, error) {
	response, err := c.sendRequestRaw(method, url, body, header)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	resBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %v %v: %w", method, url, err)
	}
	return resBody, nil
}

// returns the response with an open body on success, the caller must close it
func (c RSClient) sendRequestRaw(method, url string, body []byte, header http.Header) (*http.Response, error) {
	c.logger.Tracef("Sending %v request to URL %v", method, url)
	start := time.Now()

	response, err := c.handleRetries(method, url, body, header)
	if err != nil {
		rsRequestsTotal.WithLabelValues(method, "transport_error").Inc()
		c.logger.Tracef("Failed HTTP request: '%s'", err)
		return nil, err
	}

	rsRequestsTotal.WithLabelValues(method, strconv.Itoa(response.StatusCode)).Inc()
	rsRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	return c.handleHTTPResponse(response)
}

// converts non-2xx responses into typed errors, 4xx/5xx are never retried here
func (c RSClient) handleHTTPResponse(response *http.Response) (*http.Response, error) {
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return response, nil
	}

	resBody, _ := io.ReadAll(response.Body)
	response.Body.Close()
	text := string(resBody)

	switch response.StatusCode {
	case http.StatusUnauthorized:
		return nil, &UserUnauthorizedError{Body: text}
	case http.StatusForbidden:
		return nil, &InsufficientPrivilegesError{Body: text}
	}

	return nil, &StatusCodeError{
		StatusCode: response.StatusCode,
		Body:       text,
		Message:    errorMessage(resBody),
	}
}

// issues the request up to maxAttempts times while the failure is transport-level
func (c RSClient) handleRetries(method, url string, body []byte, header http.Header) (*http.Response, error) {
	attempts := c.maxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := c.retryDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		request, err := c.createRequest(method, url, body, header)
		if err != nil {
			return nil, fmt.Errorf("unable to create request: %w", err)
		}

		response, err := c.httpClient.Do(request)
		if err == nil {
			return response, nil
		}

		if ctxErr := c.requestContext().Err(); ctxErr != nil {
			return nil, fmt.Errorf("%v %v cancelled: %w", method, url, ctxErr)
		}
		if !isRetryableError(err) {
			rsRetryExhaustedTotal.WithLabelValues(method).Inc()
			return nil, &MaxRetryError{Method: method, URL: url, Attempts: attempt, Err: err}
		}

		lastErr = err
		if attempt == attempts {
			break
		}

		rsRetriesTotal.WithLabelValues(method).Inc()
		jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
		c.logger.Warnf("Transport error '%s': waiting %v for retry attempt %d of %d", err, delay+jitter, attempt+1, attempts)
		if err := c.sleep(delay + jitter); err != nil {
			return nil, fmt.Errorf("%v %v cancelled: %w", method, url, err)
		}
		delay *= 2
	}

	rsRetryExhaustedTotal.WithLabelValues(method).Inc()
	return nil, &MaxRetryError{Method: method, URL: url, Attempts: attempts, Err: lastErr}
}

// sleeps for d unless the client context is cancelled first
func (c RSClient) sleep(d time.Duration) error {
	if d <= 0 {
		return c.requestContext().Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-c.requestContext().Done():
		return c.requestContext().Err()
	case <-timer.C:
		return nil
	}
}

func isRetryableError(err error) bool {
	// Check for network errors
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}

	// Check for DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}

	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	return false
}

func errorMessage(resBody []byte) string {
	var msg map[string]interface{}
	if err := json.Unmarshal(resBody, &msg); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error_description", "error", "errorMessage"} {
		if str, ok := msg[key].(string); ok && str != "" {
			return str
		}
	}
	return ""
}

func (c RSClient) apiUrl(url string) string {
	return fmt.Sprintf("%v/api/v1%v", c.baseUrl, url)
}

// paths scoped to one platform client: /client/{clientId}{url}
func (c RSClient) clientUrl(clientID uint64, url string) string {
	return c.apiUrl(fmt.Sprintf("/client/%d%v", clientID, url))
}

func (c RSClient) sendRequest(method, url string, body []byte, header http.Header) ([]byte, error) {
	return c.sendRequestInternal(method, c.apiUrl(url), body, header)
}

func (c RSClient) sendClientRequest(clientID uint64, method, url string, body []byte, header http.Header) ([]byte, error) {
	if clientID == 0 {
		return nil, fmt.Errorf("no client ID: set a default with SetDefaultClientID or use ForClient")
	}
	return c.sendRequestInternal(method, c.clientUrl(clientID, url), body, header)
}

func (c RSClient) sendClientRequestRaw(clientID uint64, method, url string, body []byte, header http.Header) (*http.Response, error) {
	if clientID == 0 {
		return nil, fmt.Errorf("no client ID: set a default with SetDefaultClientID or use ForClient")
	}
	return c.sendRequestRaw(method, c.clientUrl(clientID, url), body, header)
}

func (c RSClient) GetUserAgent() string {
	return c.rsUserAgent
}
func (c *RSClient) SetUserAgent(ua string) {
	c.rsUserAgent = ua
}

// attempts is the total number of tries for a transport failure, delay doubles after each
func (c RSClient) GetRetries() (attempts int, delay time.Duration) {
	return c.maxAttempts, c.retryDelay
}

func (c *RSClient) SetRetries(attempts int, delay time.Duration) {
	c.maxAttempts = attempts
	c.retryDelay = delay
}
