package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

const memberMarker = `<div id="member">`

type reply struct {
	res Response
	err error
}

func ok(body string, setCookies ...string) reply {
	header := http.Header{}
	for _, c := range setCookies {
		header.Add("Set-Cookie", c)
	}
	return reply{res: Response{StatusCode: http.StatusOK, Header: header, Body: []byte(body)}}
}

func status(code int, body string) reply {
	return reply{res: Response{StatusCode: code, Header: http.Header{}, Body: []byte(body)}}
}

func failed(err error) reply {
	return reply{err: err}
}

// recordingTransport answers requests with canned replies in order and keeps
// every request it saw.
type recordingTransport struct {
	mu      sync.Mutex
	replies []reply
	calls   []Request
	// onCall runs before the reply is returned, with the index of the call.
	onCall func(i int)
}

func (t *recordingTransport) Do(ctx context.Context, req Request) (Response, error) {
	t.mu.Lock()
	t.calls = append(t.calls, req)
	i := len(t.calls) - 1
	t.mu.Unlock()

	if t.onCall != nil {
		t.onCall(i)
	}
	if i >= len(t.replies) {
		return Response{}, fmt.Errorf("unexpected request %d: %s %s", i, req.Method, req.URL)
	}
	r := t.replies[i]
	return r.res, r.err
}

func (t *recordingTransport) Calls() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Request, len(t.calls))
	copy(out, t.calls)
	return out
}

type fakeWebsite struct {
	descriptor     Descriptor
	alreadyActed   string
	noticeContains string
}

func newFakeWebsite() fakeWebsite {
	return fakeWebsite{
		descriptor: Descriptor{
			Host:       "https://bot.example.com/base/index.php?lang=fr#top",
			LoginPath:  "login",
			VerifyPath: "/account",
			ActionPath: "/vote",
		},
		alreadyActed: "already voted",
	}
}

func (w fakeWebsite) Name() string {
	return "fake"
}

func (w fakeWebsite) Descriptor() Descriptor {
	return w.descriptor
}

func (w fakeWebsite) LoginForm(account Account) url.Values {
	return url.Values{
		"user_name":     {account.Identifier()},
		"user_password": {account.Secret()},
		"login":         {"1"},
	}
}

func (w fakeWebsite) IsMember(body []byte) bool {
	return strings.Contains(string(body), memberMarker)
}

func (w fakeWebsite) ActionQuery() url.Values {
	return url.Values{"action": {"vote"}}
}

func (w fakeWebsite) AlreadyActed(body []byte) bool {
	return w.alreadyActed != "" && strings.Contains(string(body), w.alreadyActed)
}

func (w fakeWebsite) Notice(body []byte) string {
	if w.noticeContains != "" && strings.Contains(string(body), w.noticeContains) {
		return w.noticeContains
	}
	return ""
}
