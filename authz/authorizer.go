package authz

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/structs"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tidepool-org/blip/auth"
	"github.com/tidepool-org/blip/clinics"
	internalErrs "github.com/tidepool-org/blip/errors"
)

const (
	clinicIdPathParameter = "clinicId"
	policyPackage         = "http.authz.blip"
)

var (
	//go:embed policy.rego
	authzPolicy string

	ErrUnauthorized = fmt.Errorf("%w: the subject is not authorized for the requested action", internalErrs.Forbidden)
)

var Module = fx.Provide(NewRequestAuthorizer)

type RequestAuthorizer interface {
	Authorize(ec echo.Context) error
	EvaluatePolicy(ctx context.Context, input map[string]interface{}) error
}

type clinicInput struct {
	Id         string   `structs:"id"`
	Clinicians []string `structs:"clinicians"`
}

func NewRequestAuthorizer(clinics clinics.Service, logger *zap.SugaredLogger) (RequestAuthorizer, error) {
	compiler, err := ast.CompileModules(map[string]string{
		"policy.rego": authzPolicy,
	})
	if err != nil {
		return nil, err
	}

	return &embeddedOpaAuthorizer{
		clinics: clinics,
		logger:  logger,
		policy:  compiler,
	}, nil
}

type embeddedOpaAuthorizer struct {
	clinics clinics.Service
	logger  *zap.SugaredLogger
	policy  *ast.Compiler
}

func (e *embeddedOpaAuthorizer) Authorize(ec echo.Context) error {
	ctx := ec.Request().Context()
	authData := auth.GetAuthData(ctx)
	if authData == nil {
		return ErrUnauthorized
	}

	in := map[string]interface{}{
		"auth":   structs.Map(authData),
		"path":   splitPath(ec.Request().URL.Path),
		"method": strings.ToUpper(ec.Request().Method),
	}

	clinicId := ec.Param(clinicIdPathParameter)
	clinic, err := e.getClinic(ctx, clinicId)
	if err != nil {
		return err
	}
	if clinic != nil {
		in["clinic"] = structs.Map(clinicInput{
			Id:         clinicId,
			Clinicians: clinic.Clinicians,
		})
	}

	return e.EvaluatePolicy(ctx, in)
}

func (e *embeddedOpaAuthorizer) EvaluatePolicy(ctx context.Context, input map[string]interface{}) error {
	r := rego.New(
		rego.Package(policyPackage),
		rego.Query("allow"),
		rego.Compiler(e.policy),
		rego.Input(input),
	)

	results, err := r.Eval(ctx)
	if err != nil {
		return fmt.Errorf("unable to evaluate authorization policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return fmt.Errorf("evaluating authorization policy returned no results")
	}

	val, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return fmt.Errorf("unexpected authorization result: %v", results[0].Expressions[0].Value)
	}

	e.logger.Debugw("authorization policy eval", zap.Any("input", input), zap.Bool("allow", val))

	if !val {
		return ErrUnauthorized
	}

	return nil
}

// getClinic returns nil when the route has no clinic or the clinic does not exist
func (e *embeddedOpaAuthorizer) getClinic(ctx context.Context, clinicId string) (*clinics.Clinic, error) {
	if clinicId == "" {
		return nil, nil
	}
	clinic, err := e.clinics.Get(ctx, clinicId)
	if err != nil && !errors.Is(err, internalErrs.NotFound) {
		return nil, err
	}
	return clinic, nil
}

func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	return parts
}

type MiddlewareOpts struct {
	Skipper middleware.Skipper
}

func NewMiddleware(authorizer RequestAuthorizer, opts MiddlewareOpts) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if opts.Skipper != nil && opts.Skipper(c) {
				return next(c)
			}
			if err := authorizer.Authorize(c); err != nil {
				return err
			}
			return next(c)
		}
	}
}
