package gateway

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/google/uuid"
	"github.com/mulgadc/ebsgrow/ebsgrow/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Runner executes one workflow run
type Runner interface {
	Run(ctx context.Context, params workflow.Params) (*workflow.Report, error)
}

type GatewayConfig struct {
	Debug            bool `json:"debug"`
	DisableLogging   bool `json:"disable_logging"`
	Runner           Runner
	DefaultIncrement int
	Gatherer         prometheus.Gatherer // Source for /metrics, defaults to the global registry
}

// ConfigureLogging installs a JSON slog handler as the default logger
func ConfigureLogging(debug, disableLogging bool) {
	var logLevel slog.Level

	if debug {
		logLevel = slog.LevelDebug
	} else if disableLogging {
		logLevel = slog.LevelError
	} else {
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	slog.SetDefault(slog.New(handler))
}

func (gw *GatewayConfig) SetupRoutes() *fiber.App {

	ConfigureLogging(gw.Debug, gw.DisableLogging)

	app := fiber.New(fiber.Config{

		// Disable the startup banner
		DisableStartupMessage: gw.DisableLogging,

		// Override default error handler
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			return gw.ErrorHandler(ctx, err)
		}},
	)

	if !gw.DisableLogging {
		app.Use(logger.New())
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "*",
	}))

	app.Get("/backup", gw.Backup)
	app.Post("/backup", gw.Backup)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	gatherer := gw.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return app
}

// Backup runs the workflow with the query parameters of the request
func (gw *GatewayConfig) Backup(ctx *fiber.Ctx) error {
	requestID := ctx.Get("x-request-id", uuid.NewString())

	resp := gw.Invoke(ctx.UserContext(), requestID, ctx.Query("instance_id"), ctx.Query("volume_id"), ctx.Query("inc"))

	for k, v := range resp.Headers {
		ctx.Set(k, v)
	}
	ctx.Set("x-request-id", requestID)
	return ctx.Status(resp.StatusCode).SendString(resp.Body)
}

// Invoke validates the raw parameters, runs the workflow and builds the
// response. It is shared by every transport.
func (gw *GatewayConfig) Invoke(ctx context.Context, requestID, instanceID, volumeID, inc string) Response {
	params, err := workflow.ParseParams(instanceID, volumeID, inc, gw.DefaultIncrement)
	if err != nil {
		slog.Warn("Rejected request", "requestId", requestID, "error", err)
		return BuildResponse(err)
	}
	params.RequestID = requestID

	_, err = gw.Runner.Run(ctx, params)
	if err != nil {
		slog.Error("Workflow failed", "requestId", requestID, "error", err)
	} else {
		slog.Info("Workflow completed", "requestId", requestID)
	}

	return BuildResponse(err)
}

func (gw *GatewayConfig) ErrorHandler(ctx *fiber.Ctx, err error) error {
	slog.Debug("ErrorHandler", "path", ctx.Path(), "error", err.Error())

	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	ctx.Set("Content-Type", ContentType)
	return ctx.Status(code).SendString(err.Error())
}
