package server

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/codepair/codepair/lib/api/sessions"
	"github.com/codepair/codepair/lib/api/stats"
	"github.com/codepair/codepair/lib/runner"
	settings2 "github.com/codepair/codepair/lib/settings"
	"github.com/codepair/codepair/lib/throttle"
	"github.com/codepair/codepair/lib/utils"
	"github.com/codepair/codepair/lib/ws"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func InitServer(setupLogger *zap.SugaredLogger) {

	settings2.InitSettings(setupLogger)

	var settings = settings2.Displayed
	validatorEvaluator := validator.New(validator.WithRequiredStructEnabled())

	setupLogger.Info("Starting CodePair...")

	dataStore, err := utils.GetDB(settings, setupLogger)
	if err != nil {
		setupLogger.Fatal("Error connecting to database: " + err.Error())
		return
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	globalHub := ws.NewHub()
	saveGate := throttle.NewGate(time.Duration(settings.Collab.SaveIntervalMs) * time.Millisecond)
	codeRunner := runner.New(runner.Options{
		Command:        settings.Runner.Command,
		Arg:            settings.Runner.Arg,
		Timeout:        time.Duration(settings.Runner.TimeoutMs) * time.Millisecond,
		MaxOutputBytes: settings.Runner.MaxOutputBytes,
		MaxConcurrent:  settings.Runner.MaxConcurrent,
	}, setupLogger)
	collabMessageHandler := ws.NewCollabMessageHandler(dataStore, globalHub, saveGate, codeRunner, setupLogger)

	go globalHub.Run()

	stats.Init(app)
	sessions.Init(app, dataStore, validatorEvaluator, setupLogger)

	app.Get("/ws", func(c *fiber.Ctx) error {
		return adaptor.HTTPHandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ws.ServeWs(writer, request, c, &settings, setupLogger, collabMessageHandler)
		})(c)
	})

	fiberString := fmt.Sprintf("%s:%s", settings.IP, settings.Port)
	setupLogger.Info("Starting collaboration server on " + fiberString)
	err = app.Listen(fiberString)
	if err != nil {
		setupLogger.Error("Error starting collaboration server: " + err.Error())
		os.Exit(1)
	}
}
