package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/go-car-collection/internal/models"
	"github.com/pribylovaa/go-car-collection/internal/storage"
	"github.com/stretchr/testify/require"
)

// Покрытие token.go:
//   - выпуск access/refresh: claim id, iss, sub, exp = now + TTL;
//   - verifyAccessToken: истечение (ErrTokenExpired), чужой секрет, alg, issuer;
//   - VerifyRefreshToken: happy-path, пользователь не найден, сбой хранилища,
//     истёкший refresh, access-токен вместо refresh.

func TestIssueAccessToken_ClaimsAndExpiry(t *testing.T) {
	t.Parallel()

	svc, _, _ := newServiceWithMock(t)
	clk := withClock(svc)

	tok, exp, err := svc.IssueAccessToken(&models.User{ID: "u-1"})
	require.NoError(t, err)
	require.Equal(t, clk.Now().Add(15*time.Minute), exp)

	claims := &tokenClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(tok, claims)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.ID)
	require.Equal(t, "u-1", claims.Subject)
	require.Equal(t, "car-collection", claims.Issuer)
	require.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())

	uid, err := svc.verifyAccessToken(tok)
	require.NoError(t, err)
	require.Equal(t, "u-1", uid)
}

func TestIssueRefreshToken_SevenDays(t *testing.T) {
	t.Parallel()

	svc, _, _ := newServiceWithMock(t)
	clk := withClock(svc)

	_, exp, err := svc.IssueRefreshToken(&models.User{ID: "u-1"})
	require.NoError(t, err)
	require.Equal(t, clk.Now().Add(7*24*time.Hour), exp)
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	t.Parallel()

	svc, _, _ := newServiceWithMock(t)
	clk := withClock(svc)

	tok, _, err := svc.IssueAccessToken(&models.User{ID: "u-1"})
	require.NoError(t, err)

	// в пределах leeway токен ещё действителен.
	clk.Advance(15*time.Minute + 3*time.Second)
	_, err = svc.verifyAccessToken(tok)
	require.NoError(t, err)

	clk.Advance(10 * time.Second)
	_, err = svc.verifyAccessToken(tok)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyAccessToken_Rejections(t *testing.T) {
	t.Parallel()

	svc, _, _ := newServiceWithMock(t)
	user := &models.User{ID: "u-1"}

	refresh, _, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)

	now := time.Now()
	base := tokenClaims{
		ID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "car-collection",
		},
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, base).SignedString([]byte(testAuthCfg().AccessSecret))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, base).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	foreign := base
	foreign.Issuer = "someone-else"
	wrongIss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, foreign).SignedString([]byte(testAuthCfg().AccessSecret))
	require.NoError(t, err)

	noID := base
	noID.ID = ""
	emptyID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, noID).SignedString([]byte(testAuthCfg().AccessSecret))
	require.NoError(t, err)

	noExp := base
	noExp.ExpiresAt = nil
	withoutExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, noExp).SignedString([]byte(testAuthCfg().AccessSecret))
	require.NoError(t, err)

	cases := map[string]string{
		"refresh_as_access": refresh,
		"hs512":             hs512,
		"alg_none":          none,
		"wrong_issuer":      wrongIss,
		"empty_id":          emptyID,
		"no_exp":            withoutExp,
		"garbage":           "not.a.jwt",
	}

	for name, tok := range cases {
		_, err := svc.verifyAccessToken(tok)
		require.ErrorIs(t, err, ErrInvalidToken, name)
		require.NotErrorIs(t, err, ErrTokenExpired, name)
	}
}

func TestVerifyRefreshToken_OK(t *testing.T) {
	t.Parallel()

	svc, st, _ := newServiceWithMock(t)
	user := &models.User{ID: "u-1", Email: "a@b.io"}

	tok, _, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)

	st.EXPECT().UserByID(gomock.Any(), "u-1").Return(user, nil)

	got, err := svc.VerifyRefreshToken(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, user, got)
}

func TestVerifyRefreshToken_UserMissing(t *testing.T) {
	t.Parallel()

	svc, st, _ := newServiceWithMock(t)

	tok, _, err := svc.IssueRefreshToken(&models.User{ID: "u-1"})
	require.NoError(t, err)

	st.EXPECT().UserByID(gomock.Any(), "u-1").Return(nil, storage.ErrNotFound)

	_, err = svc.VerifyRefreshToken(context.Background(), tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRefreshToken_StorageFailure(t *testing.T) {
	t.Parallel()

	svc, st, _ := newServiceWithMock(t)

	tok, _, err := svc.IssueRefreshToken(&models.User{ID: "u-1"})
	require.NoError(t, err)

	st.EXPECT().UserByID(gomock.Any(), "u-1").Return(nil, errBoom)

	_, err = svc.VerifyRefreshToken(context.Background(), tok)
	require.ErrorIs(t, err, ErrInternal)
	require.NotErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRefreshToken_BadTokens(t *testing.T) {
	t.Parallel()

	svc, _, _ := newServiceWithMock(t)
	clk := withClock(svc)
	user := &models.User{ID: "u-1"}

	access, _, err := svc.IssueAccessToken(user)
	require.NoError(t, err)

	_, err = svc.VerifyRefreshToken(context.Background(), access)
	require.ErrorIs(t, err, ErrInvalidToken)

	refresh, _, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)

	clk.Advance(8 * 24 * time.Hour)
	_, err = svc.VerifyRefreshToken(context.Background(), refresh)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.VerifyRefreshToken(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidToken)
}
