package auth_test

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/labstack/echo/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tidepool-org/blip/auth"
)

type countingAuthenticator struct {
	delegate auth.Authenticator
	calls    int
}

func (c *countingAuthenticator) ValidateAndSetAuthData(token string, ec echo.Context) (bool, error) {
	c.calls++
	return c.delegate.ValidateAndSetAuthData(token, ec)
}

var _ = Describe("Authentication", func() {
	const secret = "token-secret"
	var e *echo.Echo

	BeforeEach(func() {
		e = echo.New()
	})

	newContext := func(token string) (echo.Context, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodGet, "/v1/clinics", nil)
		if token != "" {
			req.Header.Set(auth.TidepoolSessionTokenHeaderKey, token)
		}
		rec := httptest.NewRecorder()
		return e.NewContext(req, rec), rec
	}

	Describe("TokenAuthenticator", func() {
		It("sets the auth data of valid tokens", func() {
			c, _ := newContext("")
			valid, err := auth.NewTokenAuthenticator(secret).ValidateAndSetAuthData(signToken(secret, "1234", false, time.Now().Add(time.Hour)), c)
			Expect(err).ToNot(HaveOccurred())
			Expect(valid).To(BeTrue())
			Expect(auth.GetAuthData(c.Request().Context())).To(Equal(&auth.Auth{SubjectId: "1234"}))
		})

		It("rejects tokens signed with another secret", func() {
			c, _ := newContext("")
			_, err := auth.NewTokenAuthenticator(secret).ValidateAndSetAuthData(signToken("other", "1234", false, time.Now().Add(time.Hour)), c)
			Expect(err).To(MatchError(auth.ErrUnauthenticated))
		})

		It("rejects expired tokens", func() {
			c, _ := newContext("")
			_, err := auth.NewTokenAuthenticator(secret).ValidateAndSetAuthData(signToken(secret, "1234", false, time.Now().Add(-time.Hour)), c)
			Expect(err).To(MatchError(auth.ErrUnauthenticated))
		})
	})

	Describe("CachingAuthenticator", func() {
		It("caches server tokens only", func() {
			delegate := &countingAuthenticator{delegate: auth.NewTokenAuthenticator(secret)}
			caching, err := auth.NewCachingAuthenticator(10, time.Minute, delegate, auth.IsServerAuth)
			Expect(err).ToNot(HaveOccurred())

			serverToken := signToken(secret, "server", true, time.Now().Add(time.Hour))
			userToken := signToken(secret, "user", false, time.Now().Add(time.Hour))
			for i := 0; i < 3; i++ {
				c, _ := newContext("")
				Expect(caching.ValidateAndSetAuthData(serverToken, c)).To(BeTrue())
				Expect(auth.IsServerAuth(auth.GetAuthData(c.Request().Context()))).To(BeTrue())

				c, _ = newContext("")
				Expect(caching.ValidateAndSetAuthData(userToken, c)).To(BeTrue())
			}
			Expect(delegate.calls).To(Equal(4))
		})
	})

	Describe("Middleware", func() {
		var middleware echo.MiddlewareFunc
		next := func(c echo.Context) error {
			return c.String(http.StatusOK, auth.GetAuthData(c.Request().Context()).SubjectId)
		}

		BeforeEach(func() {
			middleware = auth.NewAuthMiddleware(auth.NewSessionAuthenticator(auth.NewSession("demo-token", "demo", false, time.Time{})), auth.AuthMiddlewareOpts{})
		})

		It("passes authenticated requests", func() {
			c, rec := newContext("demo-token")
			Expect(middleware(next)(c)).To(Succeed())
			Expect(rec.Body.String()).To(Equal("demo"))
		})

		It("rejects requests without a token", func() {
			c, _ := newContext("")
			err := middleware(next)(c)
			Expect(err).To(HaveOccurred())
			Expect(err.(*echo.HTTPError).Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects unknown tokens", func() {
			c, _ := newContext("other-token")
			err := middleware(next)(c)
			Expect(err).To(HaveOccurred())
			Expect(err.(*echo.HTTPError).Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
