package echoapi

import (
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/cooperado"
)

var (
	// appJWTConfig is the default JWT auth middleware config; set by InitAuth.
	appJWTConfig        middleware.JWTConfig
	authConf            *core.Config
	contextCooperadoKey = "cooperado"
)

// InitAuth wires the JWT middleware config to the app configuration.
// Must be called before GenerateToken or any claims helper.
func InitAuth(conf *core.Config) {
	authConf = conf
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "authToken",
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt    int64  `json:"oriat,omitempty"`
	Nome            string `json:"nome,omitempty"`
	Email           string `json:"email,omitempty"`
	NumeroAssociado string `json:"numero_associado,omitempty"` // -> MEMBER PORTAL
	IsAdmin         bool   `json:"is_admin,omitempty"`         // -> ADMIN PORTAL
}

// GetCooperadoClaims builds portal claims for an authenticated member.
func GetCooperadoClaims(coop cooperado.Cooperado, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    authConf.AppName,
			Subject:   coop.ID,
			Audience:  "Portal",
			ExpiresAt: now.Add(authConf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt:    oriat,
		Nome:            coop.NomeCompleto,
		Email:           coop.Email,
		NumeroAssociado: coop.NumeroAssociado,
	}
}

// GetAdminClaims builds back-office claims; tokens are minted by the admin CLI.
func GetAdminClaims(nome, email string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    authConf.AppName,
			Subject:   email,
			Audience:  "Admin",
			ExpiresAt: now.Add(authConf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Unix(),
		Nome:         nome,
		Email:        email,
		IsAdmin:      true,
	}
}

func authenticate(email, pwd string, svc *cooperado.Service, ctx echo.Context) (*Claims, error) {
	coop, _, err := svc.Authenticate(ctx.Request().Context(), email, pwd)
	if err != nil {
		switch errors.Cause(err) {
		case cooperado.ErrNotFound, cooperado.ErrCredencialNotFound:
			return nil, errAuthenticationFailed
		case cooperado.ErrCredencialInativa:
			return nil, errAccountDeactivated
		}
		return nil, errors.Wrap(err, "authenticating cooperado")
	}
	return GetCooperadoClaims(coop), nil
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey.([]byte))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextCooperado(ctx echo.Context, svc *cooperado.Service, clms ...Claims) (cooperado.Cooperado, error) {
	if coop, ok := ctx.Get(contextCooperadoKey).(cooperado.Cooperado); ok {
		return coop, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return cooperado.Cooperado{}, errors.Wrap(err, "getting context claims")
		}
	}
	if claims.IsAdmin {
		return cooperado.Cooperado{}, errHttpForbidden
	}

	coop, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return cooperado.Cooperado{}, errors.Wrap(err, "finding cooperado by ID")
	}
	ctx.Set(contextCooperadoKey, coop)
	return coop, nil
}

func refreshToken(ctx echo.Context, svc *cooperado.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	if claims.IsAdmin {
		return "", errHttpForbidden
	}

	coop, err := getContextCooperado(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context cooperado")
	}

	// check if credencial is still active
	cred, err := svc.GetCredencial(ctx.Request().Context(), coop.ID)
	if err != nil {
		return "", errors.Wrap(err, "getting credencial")
	}
	if !cred.IsAtiva() {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(authConf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetCooperadoClaims(coop, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
