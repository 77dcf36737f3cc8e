package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prperemyshlev/session-auth/internal/domain"
	"github.com/prperemyshlev/session-auth/internal/dto"
	"github.com/prperemyshlev/session-auth/internal/utils"
)

func (s *Suite) do(method, path string, payload any, token string) (int, map[string]any) {
	var body bytes.Buffer
	if payload != nil {
		s.Require().NoError(json.NewEncoder(&body).Encode(payload))
	}

	req, err := http.NewRequest(method, s.BaseURL+path, &body)
	s.Require().NoError(err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func (s *Suite) register(email string) string {
	status, body := s.do(http.MethodPost, "/api/users", dto.RegisterRequest{Email: email, Password: testPassword}, "")
	s.Require().Equal(http.StatusCreated, status, "registration should succeed: %v", body)
	return body["id"].(string)
}

func (s *Suite) confirmedUser(email string) string {
	id := s.register(email)
	_, err := s.Postgres.DB.Exec(`UPDATE users SET confirmed_at = NOW() WHERE id = $1`, id)
	s.Require().NoError(err)
	return id
}

func (s *Suite) signIn(email, password string) (int, map[string]any) {
	return s.do(http.MethodPost, "/api/sessions/sign_in", dto.SignInRequest{Email: email, Password: password}, "")
}

func (s *Suite) signedToken(userID string, purpose domain.TokenPurpose, binding string) string {
	codec := utils.NewSignedTokenCodec(testSignedSecret, map[domain.TokenPurpose]time.Duration{
		purpose: time.Hour,
	}, time.Now)
	token, err := codec.Issue(userID, purpose, binding)
	s.Require().NoError(err)
	return token
}

func (s *Suite) tokenCount() int {
	var count int
	s.Require().NoError(s.Postgres.DB.QueryRow(`SELECT COUNT(*) FROM oauth_access_tokens`).Scan(&count))
	return count
}

func (s *Suite) agePairs(by time.Duration) {
	_, err := s.Postgres.DB.Exec(`UPDATE oauth_access_tokens SET created_at = created_at - make_interval(secs => $1)`, by.Seconds())
	s.Require().NoError(err)
}

func (s *Suite) TestRegister_NormalizesEmail() {
	s.register("TEST@gmail.com")

	var email string
	s.Require().NoError(s.Postgres.DB.QueryRow(`SELECT email FROM users`).Scan(&email))
	s.Equal("test@gmail.com", email)
}

func (s *Suite) TestRegister_ValidationErrors() {
	status, body := s.do(http.MethodPost, "/api/users", dto.RegisterRequest{Email: "", Password: testPassword}, "")

	s.Equal(http.StatusUnprocessableEntity, status)
	s.Equal([]any{"Email is invalid", "Email can't be blank"}, body["errors"])
}

func (s *Suite) TestRegister_DuplicateEmail() {
	s.register("duplicate@gmail.com")

	status, body := s.do(http.MethodPost, "/api/users", dto.RegisterRequest{Email: "Duplicate@gmail.com", Password: testPassword}, "")

	s.Equal(http.StatusUnprocessableEntity, status)
	s.Equal([]any{"Email has already been taken"}, body["errors"])
}

func (s *Suite) TestSignIn_WrongCredentials() {
	s.confirmedUser("test@gmail.com")

	for _, tc := range []struct{ email, password string }{
		{"wrong@gmail.com", testPassword},
		{"test@gmail.com", "wrong"},
	} {
		status, body := s.signIn(tc.email, tc.password)
		s.Equal(http.StatusUnprocessableEntity, status)
		s.Equal("Incorrect email or password", body["errors"])
	}
}

func (s *Suite) TestSignIn_Unconfirmed() {
	s.register("test@gmail.com")

	status, body := s.signIn("test@gmail.com", testPassword)

	s.Equal(http.StatusUnprocessableEntity, status)
	s.Equal("Email is not confirmed", body["errors"])
}

func (s *Suite) TestSignIn_ReturnsStoredPair() {
	s.confirmedUser("test@gmail.com")

	status, first := s.signIn("test@gmail.com", testPassword)
	s.Require().Equal(http.StatusCreated, status)

	var token, refreshToken string
	s.Require().NoError(s.Postgres.DB.QueryRow(`SELECT token, refresh_token FROM oauth_access_tokens`).Scan(&token, &refreshToken))
	s.Equal(token, first["access_token"])
	s.Equal(refreshToken, first["refresh_token"])

	status, second := s.signIn("test@gmail.com", testPassword)
	s.Require().Equal(http.StatusCreated, status)
	s.Equal(first["access_token"], second["access_token"])
	s.Equal(first["refresh_token"], second["refresh_token"])
	s.Equal(1, s.tokenCount())
}

func (s *Suite) TestSignOut() {
	s.confirmedUser("test@gmail.com")
	_, pair := s.signIn("test@gmail.com", testPassword)
	accessToken := pair["access_token"].(string)

	status, body := s.do(http.MethodDelete, "/api/sessions/sign_out", nil, "fake_token")
	s.Equal(http.StatusUnprocessableEntity, status)
	s.Equal("Invalid Token", body["errors"])
	s.Equal(1, s.tokenCount())

	status, _ = s.do(http.MethodDelete, "/api/sessions/sign_out", nil, accessToken)
	s.Equal(http.StatusOK, status)
	s.Equal(0, s.tokenCount())

	status, body = s.do(http.MethodDelete, "/api/sessions/sign_out", nil, accessToken)
	s.Equal(http.StatusUnprocessableEntity, status)
	s.Equal("Invalid Token", body["errors"])
}

func (s *Suite) TestSignOut_Expired() {
	s.confirmedUser("test@gmail.com")
	_, pair := s.signIn("test@gmail.com", testPassword)
	s.agePairs(25 * time.Hour)

	status, body := s.do(http.MethodDelete, "/api/sessions/sign_out", nil, pair["access_token"].(string))

	s.Equal(http.StatusUnprocessableEntity, status)
	s.Equal("Invalid Token", body["errors"])
}

func (s *Suite) TestRefreshToken() {
	s.confirmedUser("test@gmail.com")
	_, pair := s.signIn("test@gmail.com", testPassword)

	status, body := s.do(http.MethodPut, "/api/sessions/refresh_token", dto.RefreshTokenRequest{RefreshToken: "fake_token"}, "")
	s.Equal(http.StatusUnprocessableEntity, status)
	s.Equal("Invalid Token", body["errors"])

	status, fresh := s.do(http.MethodPut, "/api/sessions/refresh_token",
		dto.RefreshTokenRequest{RefreshToken: pair["refresh_token"].(string)}, "")
	s.Require().Equal(http.StatusOK, status)
	s.NotEqual(pair["access_token"], fresh["access_token"])
	s.NotEqual(pair["refresh_token"], fresh["refresh_token"])
	s.Equal(1, s.tokenCount())

	status, _ = s.do(http.MethodGet, "/api/users/me", nil, pair["access_token"].(string))
	s.Equal(http.StatusUnauthorized, status)

	status, _ = s.do(http.MethodGet, "/api/users/me", nil, fresh["access_token"].(string))
	s.Equal(http.StatusOK, status)
}

func (s *Suite) TestRefreshToken_Expired() {
	s.confirmedUser("test@gmail.com")
	_, pair := s.signIn("test@gmail.com", testPassword)
	s.agePairs(25 * time.Hour)

	status, body := s.do(http.MethodPut, "/api/sessions/refresh_token",
		dto.RefreshTokenRequest{RefreshToken: pair["refresh_token"].(string)}, "")

	s.Equal(http.StatusUnprocessableEntity, status)
	s.Equal("Expired Token", body["errors"])
	s.Equal(0, s.tokenCount())
}

func (s *Suite) TestConfirmation() {
	id := s.register("test@gmail.com")

	status, body := s.do(http.MethodPut, "/api/confirmations/garbage", nil, "")
	s.Equal(http.StatusUnprocessableEntity, status)
	s.Equal("Invalid Token", body["errors"])

	token := s.signedToken(id, domain.PurposeConfirmEmail, "test@gmail.com")
	status, body = s.do(http.MethodPut, "/api/confirmations/"+token, nil, "")
	s.Require().Equal(http.StatusOK, status)
	s.NotNil(body["confirmed_at"])

	status, _ = s.signIn("test@gmail.com", testPassword)
	s.Equal(http.StatusCreated, status)

	status, _ = s.do(http.MethodPut, "/api/confirmations/"+token, nil, "")
	s.Equal(http.StatusUnprocessableEntity, status)
}

func (s *Suite) TestResendConfirmation() {
	s.register("test@gmail.com")

	status, _ := s.do(http.MethodPost, "/api/confirmations", dto.EmailRequest{Email: "test@gmail.com"}, "")
	s.Equal(http.StatusAccepted, status)

	status, _ = s.do(http.MethodPost, "/api/confirmations", dto.EmailRequest{Email: "missing@gmail.com"}, "")
	s.Equal(http.StatusAccepted, status)
}

func (s *Suite) TestPasswordReset() {
	id := s.confirmedUser("test@gmail.com")
	_, pair := s.signIn("test@gmail.com", testPassword)

	status, _ := s.do(http.MethodPost, "/api/passwords", dto.EmailRequest{Email: "test@gmail.com"}, "")
	s.Equal(http.StatusAccepted, status)

	var hash string
	s.Require().NoError(s.Postgres.DB.QueryRow(`SELECT password_hash FROM users WHERE id = $1`, id).Scan(&hash))
	token := s.signedToken(id, domain.PurposeResetPassword, hash)

	status, _ = s.do(http.MethodPut, "/api/passwords/"+token, dto.ResetPasswordRequest{Password: "NewPassword456"}, "")
	s.Require().Equal(http.StatusOK, status)
	s.Equal(0, s.tokenCount())

	status, _ = s.do(http.MethodGet, "/api/users/me", nil, pair["access_token"].(string))
	s.Equal(http.StatusUnauthorized, status)

	status, _ = s.signIn("test@gmail.com", "NewPassword456")
	s.Equal(http.StatusCreated, status)

	status, body := s.do(http.MethodPut, "/api/passwords/"+token, dto.ResetPasswordRequest{Password: "OtherPassword789"}, "")
	s.Equal(http.StatusUnprocessableEntity, status)
	s.Equal("Invalid Token", body["errors"])
}

func (s *Suite) TestChangeEmail() {
	id := s.confirmedUser("old@gmail.com")
	_, pair := s.signIn("old@gmail.com", testPassword)
	accessToken := pair["access_token"].(string)

	status, body := s.do(http.MethodPut, "/api/users/me/email", dto.ChangeEmailRequest{Email: "NEW@gmail.com"}, accessToken)
	s.Require().Equal(http.StatusAccepted, status)
	s.Equal("old@gmail.com", body["email"])
	s.Equal("new@gmail.com", body["unconfirmed_email"])

	token := s.signedToken(id, domain.PurposeConfirmEmail, "new@gmail.com")
	status, body = s.do(http.MethodPut, "/api/confirmations/"+token, nil, "")
	s.Require().Equal(http.StatusOK, status)
	s.Equal("new@gmail.com", body["email"])

	status, body = s.do(http.MethodGet, "/api/users/me", nil, accessToken)
	s.Require().Equal(http.StatusOK, status)
	s.Equal("new@gmail.com", body["email"])
	s.Nil(body["unconfirmed_email"])
}

func (s *Suite) TestSignIn_RateLimited() {
	limit := s.Config.Security.RateLimitRequests

	var status int
	for i := 0; i <= limit; i++ {
		status, _ = s.signIn("nobody@gmail.com", testPassword)
	}

	s.Equal(http.StatusTooManyRequests, status)
}
