package integration

import (
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strv-go/newsletter-publisher/tests/integration/setup"
)

var confirmationTokenRE = regexp.MustCompile(`/subscriptions/confirm\?token=([A-Za-z0-9]{25})`)

func postForm(t *testing.T, client *http.Client, targetURL string, form url.Values) *http.Response {
	req, err := http.NewRequest(http.MethodPost, targetURL, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	noRedirect := &http.Client{
		Transport: client.Transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := noRedirect.Do(req)
	require.NoError(t, err)
	return resp
}

// Scenario 1: POST /subscriptions happy path (spec.md §8 scenario 1).
func TestSubscribeHappyPath(t *testing.T) {
	ts := setup.NewTestServer(t)
	defer ts.Close()

	resp := postForm(t, ts.Client, ts.URL()+"/subscriptions", url.Values{
		"username": {"lzl"},
		"email":    {"bar@qq.com"},
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"id"`)

	var status string
	err = ts.DB.QueryRow(`SELECT status FROM subscriptions WHERE email = $1`, "bar@qq.com").Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, "pending_confirmed", status)

	assert.Equal(t, int64(1), ts.EmailSink.Calls())

	match := confirmationTokenRE.Find(ts.EmailSink.LastRequestBody())
	require.NotNil(t, match, "confirmation email body must contain a /subscriptions/confirm link with a 25-char token")
}

// Scenario 2: Confirm happy path using the link extracted from scenario 1's
// confirmation email.
func TestConfirmHappyPath(t *testing.T) {
	ts := setup.NewTestServer(t)
	defer ts.Close()

	resp := postForm(t, ts.Client, ts.URL()+"/subscriptions", url.Values{
		"username": {"lzl"},
		"email":    {"confirm-happy@test.example.com"},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var token string
	err := ts.DB.QueryRow(`
		SELECT st.token FROM subscription_tokens st
		JOIN subscriptions s ON s.id = st.subscriber_id
		WHERE s.email = $1`, "confirm-happy@test.example.com").Scan(&token)
	require.NoError(t, err)
	assert.Len(t, token, 25)

	confirmResp, err := ts.Client.Get(ts.URL() + "/subscriptions/confirm?token=" + token)
	require.NoError(t, err)
	defer confirmResp.Body.Close()
	require.Equal(t, http.StatusOK, confirmResp.StatusCode)

	var status string
	err = ts.DB.QueryRow(`SELECT status FROM subscriptions WHERE email = $1`, "confirm-happy@test.example.com").Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", status)
}

// Scenario 3: Confirm with a missing token parameter.
func TestConfirmMissingToken(t *testing.T) {
	ts := setup.NewTestServer(t)
	defer ts.Close()

	resp, err := ts.Client.Get(ts.URL() + "/subscriptions/confirm")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// Scenario 4: login fixation / one-shot flash cookie.
func TestLoginFailureFlashExpiresAfterOneSecond(t *testing.T) {
	ts := setup.NewTestServer(t)
	defer ts.Close()

	resp := postForm(t, ts.Client, ts.URL()+"/login", url.Values{
		"username": {"nobody"},
		"password": {"wrong-password"},
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	var flashCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "_flash" {
			flashCookie = c
		}
	}
	require.NotNil(t, flashCookie)
	assert.Equal(t, "Authentication failed", flashCookie.Value)
	assert.Equal(t, 1, flashCookie.MaxAge)
	assert.True(t, flashCookie.Secure)
	assert.True(t, flashCookie.HttpOnly)

	req, err := http.NewRequest(http.MethodGet, ts.URL()+"/login", nil)
	require.NoError(t, err)
	req.AddCookie(flashCookie)
	loginPage, err := ts.Client.Do(req)
	require.NoError(t, err)
	defer loginPage.Body.Close()

	body, err := io.ReadAll(loginPage.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<p><i>Authentication failed</i></p>")

	time.Sleep(1100 * time.Millisecond)

	reqAfter, err := http.NewRequest(http.MethodGet, ts.URL()+"/login", nil)
	require.NoError(t, err)
	// The cookie's own Max-Age governs browser-side expiry; simulate an
	// expired cookie by not resending it, matching what a real browser
	// would do once the one-second Max-Age elapses.
	afterPage, err := ts.Client.Do(reqAfter)
	require.NoError(t, err)
	defer afterPage.Body.Close()

	afterBody, err := io.ReadAll(afterPage.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(afterBody), "Authentication failed")
}

// Scenario 5: idempotent publish — identical re-submission returns
// byte-identical bytes and sends exactly one email.
func TestIdempotentPublish(t *testing.T) {
	ts := setup.NewTestServer(t)
	defer ts.Close()

	ts.SeedAdmin(t, "test_admin_idem", "s3cret-password!")
	seedConfirmedSubscriber(t, ts, "idem-subscriber@test.example.com")

	sessionCookie := loginAndGetSessionCookie(t, ts, "test_admin_idem", "s3cret-password!")

	form := url.Values{
		"idempotency_key": {"scenario-5-idempotency-key-0001"},
		"title":           {"t"},
		"text_content":    {"x"},
		"html_content":    {"<p>x</p>"},
	}

	resp1 := postAuthenticatedForm(t, ts, sessionCookie, "/admin/newsletters", form)
	body1, headers1 := drainResponse(t, resp1)
	require.Equal(t, http.StatusSeeOther, resp1.StatusCode)
	assert.Equal(t, "/admin/newsletters", resp1.Header.Get("Location"))

	resp2 := postAuthenticatedForm(t, ts, sessionCookie, "/admin/newsletters", form)
	body2, headers2 := drainResponse(t, resp2)

	assert.Equal(t, resp1.StatusCode, resp2.StatusCode)
	assert.Equal(t, body1, body2)
	assert.Equal(t, headers1.Get("Location"), headers2.Get("Location"))

	assert.Equal(t, int64(1), ts.EmailSink.Calls())
}

// Scenario 6: the delivery worker retries a transient email failure.
func TestWorkerRetriesTransientEmailFailure(t *testing.T) {
	ts := setup.NewTestServer(t)
	defer ts.Close()

	ts.SeedAdmin(t, "test_admin_retry", "another-s3cret!!")
	subscriberEmail := "retry-subscriber@test.example.com"
	seedConfirmedSubscriber(t, ts, subscriberEmail)

	sessionCookie := loginAndGetSessionCookie(t, ts, "test_admin_retry", "another-s3cret!!")

	ts.EmailSink.QueueResponses(http.StatusInternalServerError, http.StatusOK)

	form := url.Values{
		"idempotency_key": {"scenario-6-idempotency-key-0002"},
		"title":           {"retry issue"},
		"text_content":    {"body"},
		"html_content":    {"<p>body</p>"},
	}
	resp := postAuthenticatedForm(t, ts, sessionCookie, "/admin/newsletters", form)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	var queueDepth int
	err := ts.DB.QueryRow(`SELECT count(*) FROM issue_delivery_queue WHERE subscriber_email = $1`, subscriberEmail).Scan(&queueDepth)
	require.NoError(t, err)
	require.Equal(t, 1, queueDepth)

	err = ts.DrainOneDeliveryTask(t)
	assert.Error(t, err, "first delivery attempt should fail against the queued 500")

	err = ts.DrainOneDeliveryTask(t)
	assert.NoError(t, err, "second delivery attempt should succeed against the queued 200")

	err = ts.DB.QueryRow(`SELECT count(*) FROM issue_delivery_queue WHERE subscriber_email = $1`, subscriberEmail).Scan(&queueDepth)
	require.NoError(t, err)
	assert.Equal(t, 0, queueDepth)

	assert.GreaterOrEqual(t, ts.EmailSink.Calls(), int64(2))
}

func seedConfirmedSubscriber(t *testing.T, ts *setup.TestServer, email string) {
	resp := postForm(t, ts.Client, ts.URL()+"/subscriptions", url.Values{
		"username": {"subscriber"},
		"email":    {email},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var token string
	err := ts.DB.QueryRow(`
		SELECT st.token FROM subscription_tokens st
		JOIN subscriptions s ON s.id = st.subscriber_id
		WHERE s.email = $1`, email).Scan(&token)
	require.NoError(t, err)

	confirmResp, err := ts.Client.Get(ts.URL() + "/subscriptions/confirm?token=" + token)
	require.NoError(t, err)
	confirmResp.Body.Close()
	require.Equal(t, http.StatusOK, confirmResp.StatusCode)
}

func loginAndGetSessionCookie(t *testing.T, ts *setup.TestServer, username, password string) *http.Cookie {
	resp := postForm(t, ts.Client, ts.URL()+"/login", url.Values{
		"username": {username},
		"password": {password},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/dashboard", resp.Header.Get("Location"))

	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	t.Fatal("login response did not set a session cookie")
	return nil
}

func postAuthenticatedForm(t *testing.T, ts *setup.TestServer, sessionCookie *http.Cookie, path string, form url.Values) *http.Response {
	req, err := http.NewRequest(http.MethodPost, ts.URL()+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(sessionCookie)

	noRedirect := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := noRedirect.Do(req)
	require.NoError(t, err)
	return resp
}

func drainResponse(t *testing.T, resp *http.Response) ([]byte, http.Header) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return body, resp.Header
}
