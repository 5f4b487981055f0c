package engine

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func headerWith(key string, values ...string) http.Header {
	header := http.Header{}
	for _, v := range values {
		// bypass canonicalization so the raw key is kept as given
		header[key] = append(header[key], v)
	}
	return header
}

func TestCookieJarCaptureDropsAttributes(t *testing.T) {
	jar := NewCookieJar()
	jar.Capture(headerWith("Set-Cookie", "a=1; Path=/", "b=2; HttpOnly"))

	require.Equal(t, "a=1; b=2", jar.Render())
	require.Equal(t, 2, jar.Len())
}

func TestCookieJarOverwrite(t *testing.T) {
	jar := NewCookieJar()
	jar.Capture(headerWith("Set-Cookie", "a=1"))
	jar.Capture(headerWith("Set-Cookie", "b=x"))
	jar.Capture(headerWith("Set-Cookie", "a=2"))

	require.Equal(t, "a=2; b=x", jar.Render())
	value, ok := jar.Get("a")
	require.True(t, ok)
	require.Equal(t, "2", value)
}

func TestCookieJarOverwriteWithinOneCapture(t *testing.T) {
	jar := NewCookieJar()
	jar.Capture(headerWith("Set-Cookie", "sid=old; Path=/", "sid=new; Secure"))

	require.Equal(t, "sid=new", jar.Render())
}

func TestCookieJarHeaderNameCaseInsensitive(t *testing.T) {
	testCases := []string{"Set-Cookie", "set-cookie", "SET-COOKIE", "sEt-CoOkIe"}

	for _, key := range testCases {
		jar := NewCookieJar()
		jar.Capture(headerWith(key, "sid=abc; Path=/"))
		require.Equal(t, "sid=abc", jar.Render(), key)
	}
}

func TestCookieJarIgnoresOtherHeadersAndMalformedCookies(t *testing.T) {
	header := http.Header{}
	header.Add("Cookie", "x=1")
	header.Add("Content-Type", "text/html")
	header.Add("Set-Cookie", "novalue")
	header.Add("Set-Cookie", "=orphan")
	header.Add("Set-Cookie", " spaced = v ; Path=/")
	header.Add("Set-Cookie", "token=a=b=c; Max-Age=10")
	header.Add("Set-Cookie", "empty=; Path=/")

	jar := NewCookieJar()
	jar.Capture(header)

	require.Equal(t, "spaced=v; token=a=b=c; empty=", jar.Render())
}

func TestCookieJarEmpty(t *testing.T) {
	jar := NewCookieJar()
	jar.Capture(nil)
	require.Equal(t, "", jar.Render())
	require.Equal(t, 0, jar.Len())
	_, ok := jar.Get("sid")
	require.False(t, ok)
}
