package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/namanlalitnyu/RapidEdit/config"
)

func sessionTestContext(t *testing.T, cookies []*http.Cookie) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		c.Request.AddCookie(ck)
	}
	return c, w
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store := NewSessionStore(&config.SessionConfig{CookieName: "rapidedit_session", TTL: time.Minute})

	c1, w1 := sessionTestContext(t, nil)
	s1 := store.Get(c1)
	s1.Prompt = "a dog"
	s1.ImagePath = "uploads/cat.jpg"
	store.Save(c1, s1)

	cookies := w1.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("a new session must set a cookie")
	}

	// 同一Cookie的后续请求命中同一会话
	c2, _ := sessionTestContext(t, cookies)
	s2 := store.Get(c2)
	if s2.Prompt != "a dog" || s2.ImagePath != "uploads/cat.jpg" {
		t.Fatalf("session state lost across requests: %+v", s2)
	}
}

func TestSessionStoreSameRequestStableID(t *testing.T) {
	store := NewSessionStore(&config.SessionConfig{CookieName: "rapidedit_session", TTL: time.Minute})

	c, _ := sessionTestContext(t, nil)
	s := store.Get(c)
	s.Prompt = "a dog"
	store.Save(c, s)

	// 同一请求内无Cookie也必须命中同一会话
	if got := store.Get(c); got.Prompt != "a dog" {
		t.Fatalf("session id not stable within a request: %+v", got)
	}
}

func TestSessionStoreReset(t *testing.T) {
	store := NewSessionStore(&config.SessionConfig{CookieName: "rapidedit_session", TTL: time.Minute})

	c, w := sessionTestContext(t, nil)
	s := store.Get(c)
	s.Prompt = "a dog"
	s.ResultPath = "uploads/result.png"
	store.Save(c, s)

	store.Reset(c)

	c2, _ := sessionTestContext(t, w.Result().Cookies())
	got := store.Get(c2)
	if got.Prompt != "" || got.ResultPath != "" {
		t.Fatalf("session not reset: %+v", got)
	}
}

func TestSessionStoreIsolation(t *testing.T) {
	store := NewSessionStore(&config.SessionConfig{CookieName: "rapidedit_session", TTL: time.Minute})

	cA, _ := sessionTestContext(t, nil)
	sA := store.Get(cA)
	sA.Prompt = "a dog"
	store.Save(cA, sA)

	cB, _ := sessionTestContext(t, nil)
	if sB := store.Get(cB); sB.Prompt != "" {
		t.Fatalf("sessions leaked across cookies: %+v", sB)
	}
}
