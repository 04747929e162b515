package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the token's subject and role claims into the
// request context.  Tokens are issued by the external account service;
// this engine only verifies them with the shared secret.  Handlers read
// the authenticated identity via `c.Get("user_id")` and `c.Get("role")`.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header is "Bearer <token>"; anything else is 401.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Parse with HS256 and our secret; reject any other signing
            // method so an attacker cannot downgrade to "none".
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            // Store the subject (user ID) and role claims for handlers
            // and downstream middleware; type assertions are left to the
            // consumers.
            c.Set("user_id", claims["sub"])
            c.Set("role", claims["role"])
            return next(c)
        }
    }
}

// OptionalJWTAuth validates a Bearer token when one is presented and
// passes the request through anonymously when none is.  Public read
// endpoints use it so authenticated callers get the richer payload
// (availability with reservation IDs) while guests still browse.  A
// presented-but-invalid token is still 401; silently downgrading it to
// a guest view would hide expired sessions from clients.
func OptionalJWTAuth(secret string) echo.MiddlewareFunc {
    required := JWTAuth(secret)
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        withToken := required(next)
        return func(c echo.Context) error {
            if c.Request().Header.Get("Authorization") == "" {
                return next(c)
            }
            return withToken(c)
        }
    }
}
