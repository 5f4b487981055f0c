package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

const redacted = "[REDACTED]"

var sensitiveParts = []string{"pass", "secret", "token", "cookie", "authorization"}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, part := range sensitiveParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			if isSensitive(k) {
				v = redacted
			}
			out.WriteString(fmt.Sprintf("%s: %s\n", k, v))
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

// redactForm masks the values of `secretFields` and of form fields that look
// like credentials. A body that is not form encoded is fully masked.
func redactForm(body string, secretFields []string) string {
	values, err := url.ParseQuery(body)
	if err != nil {
		return redacted
	}
	for k := range values {
		if isSensitive(k) || slices.Contains(secretFields, k) {
			values[k] = []string{redacted}
		}
	}
	return values.Encode()
}

func formatRequestBody(req *http.Request, secretFields []string) string {
	if req == nil || req.GetBody == nil {
		return "<NO BODY AVAILABLE>"
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	readBody, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}
	if strings.HasPrefix(req.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return redactForm(string(readBody), secretFields)
	}
	return string(readBody)
}

// 1: request method
// 2: request url
// 3: request headers in ("Key: Value" format)
// 4: request body
// 5: response status
// 6: response location (if redirected)
// 7: response headers in ("Key: Value" format)
// 8: response body
const messageInfoTemplate = `---- REQUEST ----

%s %s

%s

%s

---- RESPONSE ----

%s %s

%s

%s`

func formatHttpMessage(res *resty.Response, secretFields []string) string {
	var requestHeaders string
	if res.Request.RawRequest != nil {
		requestHeaders = formatHeaders(res.Request.RawRequest.Header)
	}
	responseHeaders := formatHeaders(res.Header())

	location := ""
	if res.RawResponse != nil {
		redirected, err := res.RawResponse.Location()
		if err == nil {
			location = fmt.Sprintf("-> %s", redirected.String())
		}
	}

	return fmt.Sprintf(
		messageInfoTemplate,

		res.Request.Method, res.Request.URL,
		requestHeaders,
		formatRequestBody(res.Request.RawRequest, secretFields),

		strconv.Itoa(res.StatusCode()), location,
		responseHeaders,
		res.String(),
	)
}
