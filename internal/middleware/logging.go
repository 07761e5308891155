package middleware

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger is the process-wide structured logger. Records logged with a request
// context carry that request's id, trace, user and API token.
var Logger = NewLogger(os.Getenv("APP_ENV"), os.Stdout)

// NewLogger logs JSON in production and text elsewhere.
func NewLogger(env string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if e := strings.ToLower(env); e == "production" || e == "prod" {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(requestHandler{h})
}

type requestKey struct{}

// requestInfo is what the request-aware handler stamps onto each record.
type requestInfo struct {
	RequestID string
	TraceID   string
	UserID    uint
	TokenID   uint
}

func infoFrom(ctx context.Context) requestInfo {
	info, _ := ctx.Value(requestKey{}).(requestInfo)
	return info
}

func withInfo(ctx context.Context, edit func(*requestInfo)) context.Context {
	info := infoFrom(ctx)
	edit(&info)
	return context.WithValue(ctx, requestKey{}, info)
}

func (i requestInfo) attrs() []slog.Attr {
	var out []slog.Attr
	if i.RequestID != "" {
		out = append(out, slog.String("request_id", i.RequestID))
	}
	if i.TraceID != "" {
		out = append(out, slog.String("trace_id", i.TraceID))
	}
	if i.UserID != 0 {
		out = append(out, slog.Uint64("user_id", uint64(i.UserID)))
	}
	if i.TokenID != 0 {
		out = append(out, slog.Uint64("api_token_id", uint64(i.TokenID)))
	}
	return out
}

type requestHandler struct {
	slog.Handler
}

func (h requestHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		r.AddAttrs(infoFrom(ctx).attrs()...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h requestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestHandler{h.Handler.WithAttrs(attrs)}
}

func (h requestHandler) WithGroup(name string) slog.Handler {
	return requestHandler{h.Handler.WithGroup(name)}
}

// ContextMiddleware copies the request and trace ids from Fiber locals into the
// request context. It runs after requestid and tracing.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, _ := c.Locals("requestid").(string)
		tid, _ := c.Locals("traceID").(string)
		c.SetUserContext(withInfo(c.UserContext(), func(i *requestInfo) {
			i.RequestID, i.TraceID = rid, tid
		}))
		return c.Next()
	}
}

// BindUser records the acting user on the Fiber locals and the request context.
func BindUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	c.SetUserContext(withInfo(c.UserContext(), func(i *requestInfo) { i.UserID = userID }))
}

// BindToken records the API token authenticating an external request on its context.
func BindToken(c *fiber.Ctx, tokenID uint) {
	c.SetUserContext(withInfo(c.UserContext(), func(i *requestInfo) { i.TokenID = tokenID }))
}

// StructuredLogger writes one record per request. Probe traffic under /health is
// skipped; 5xx responses log at error and 4xx at warn.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/health") {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("route", route),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Int("bytes", len(c.Response().Body())),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
		}
		level := slog.LevelInfo
		switch {
		case err != nil || status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		Logger.LogAttrs(c.UserContext(), level, "request", attrs...)
		return err
	}
}
