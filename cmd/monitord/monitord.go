// Command monitord runs the wearable symptom monitor daemon: it reads
// acceleration samples from the serial IMU bridge (or a synthetic source
// in dev mode), drives the detection pipeline, persists results, serves
// the HTTP API, and publishes detections.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/api"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/config"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/db"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/ingest"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/monitor"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/notify"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/serialmux"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/timeutil"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/units"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/version"
)

var (
	devMode       = flag.Bool("dev", false, "Run in dev mode with a synthetic sample source")
	noSensor      = flag.Bool("no-sensor", false, "Serve the API over stored data without a sensor attached")
	listen        = flag.String("listen", ":8080", "Listen address")
	port          = flag.String("port", "/dev/ttyACM0", "Serial port of the IMU bridge (ignored in dev mode)")
	baud          = flag.Int("baud", 115200, "Serial baud rate")
	dbPath        = flag.String("db", "symptom_data.db", "SQLite database path")
	unitsFlag     = flag.String("units", units.MG, "Units the bridge streams in: "+units.GetValidUnitsString())
	tuningPath    = flag.String("tuning", "", "Optional JSON tuning overlay")
	migrationsDir = flag.String("migrations", "migrations", "Migrations directory (migrate subcommand)")
	mqttBroker    = flag.String("mqtt", "", "MQTT broker URL, e.g. mqtt://localhost:1883 (disabled when empty)")
	mqttPrefix    = flag.String("mqtt-prefix", "symptoms", "MQTT topic prefix")
	webhookURL    = flag.String("webhook", "", "Webhook URL for detections (disabled when empty)")
	notes         = flag.String("notes", "", "Free-form session notes")
)

func main() {
	flag.Parse()

	// `monitord migrate <action>` manages the schema and exits.
	if flag.Arg(0) == "migrate" {
		action := flag.Arg(1)
		if action == "" {
			db.PrintMigrateHelp()
			os.Exit(1)
		}
		if err := db.RunMigrateCommand(*dbPath, *migrationsDir, action, flag.Args()[2:]); err != nil {
			log.Fatalf("migrate %s: %v", action, err)
		}
		return
	}

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if *listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if !units.IsValid(*unitsFlag) {
		return fmt.Errorf("invalid units %q: valid values are %s", *unitsFlag, units.GetValidUnitsString())
	}

	cfg := monitor.Config{}
	if *tuningPath != "" {
		tuning, err := config.LoadTuningConfig(*tuningPath)
		if err != nil {
			return fmt.Errorf("load tuning: %w", err)
		}
		cfg = tuning.Apply(cfg)
	}

	log.Printf("monitord %s (%s) starting", version.Version, version.GitSHA)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sample transport: no-op without a sensor, synthetic stream in dev
	// mode, the bridge otherwise.
	var mux serialmux.SerialMuxInterface
	if *noSensor {
		mux = serialmux.NewDisabledSerialMux()
		log.Printf("no-sensor mode: serving stored data only")
	} else if *devMode {
		sampleRate := cfg.SampleRate
		if sampleRate == 0 {
			sampleRate = monitor.DefaultSampleRate
		}
		source := ingest.NewSource(sampleRate)
		mux = serialmux.NewMockSerialMux(source.NextLine, sampleRate)
		log.Printf("dev mode: synthetic %g Hz fallback tone", sampleRate)
	} else {
		var err error
		mux, err = serialmux.NewRealSerialMux(*port, serialmux.PortOptions{BaudRate: *baud})
		if err != nil {
			return fmt.Errorf("open serial port %s: %w", *port, err)
		}
	}
	defer mux.Close()

	if err := mux.Initialize(); err != nil {
		return fmt.Errorf("initialize bridge: %w", err)
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	// Result publication. The log publisher is always on; MQTT and
	// webhook join when configured.
	publishers := []notify.Publisher{notify.NewLogPublisher()}
	if *mqttBroker != "" {
		mqtt, err := notify.NewMQTTPublisher(ctx, *mqttBroker, "monitord", *mqttPrefix)
		if err != nil {
			return fmt.Errorf("mqtt publisher: %w", err)
		}
		publishers = append(publishers, mqtt)
	}
	if *webhookURL != "" {
		publishers = append(publishers, notify.NewWebhookPublisher(*webhookURL, nil))
	}
	publisher := notify.NewMultiPublisher(publishers...)
	defer publisher.Close()

	// The pipeline callback references the server and session, which are
	// created after the pipeline; declare them first so the closure sees
	// the final values.
	var (
		server    *api.Server
		sessionID string
		tracker   *monitor.EpisodeTracker
	)

	pipeline, err := monitor.NewPipeline(cfg, func(r monitor.WindowResult) {
		if err := database.RecordWindow(sessionID, r); err != nil {
			log.Printf("failed to record window %d: %v", r.Seq, err)
		}
		tracker.Observe(r.Seq, r.Outcome, r.Detection)
		server.Publish(r)
		if err := publisher.PublishResult(ctx, r); err != nil {
			log.Printf("failed to publish window %d: %v", r.Seq, err)
		}
	})
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	sessionID, err = database.CreateSession(pipeline.Config(), *unitsFlag, *notes)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	log.Printf("session %s started (%g Hz, %d-sample windows)", sessionID,
		pipeline.Config().SampleRate, pipeline.Config().WindowSize)

	tracker = monitor.NewEpisodeTracker(timeutil.RealClock{}, func(e monitor.Episode) {
		if _, err := database.RecordEpisode(sessionID, e); err != nil {
			log.Printf("failed to record episode: %v", err)
		}
		if err := publisher.PublishEpisode(ctx, e); err != nil {
			log.Printf("failed to publish episode: %v", err)
		}
	})
	defer tracker.Flush()

	server = api.NewServer(mux, database, pipeline, sessionID, *unitsFlag)
	server.SetEpisodeSource(tracker.Current)

	var wg sync.WaitGroup

	// Serial monitor routine: manages IO on the bridge port.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mux.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("serial monitor stopped: %v", err)
		}
	}()

	// Subscriber routine: feeds bridge lines into the pipeline.
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := mux.Subscribe()
		defer mux.Unsubscribe(id)
		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				if err := serialmux.HandleEvent(pipeline, *unitsFlag, payload); err != nil {
					log.Printf("error handling event: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// HTTP server routine.
	wg.Add(1)
	go func() {
		defer wg.Done()

		httpMux := server.ServeMux()
		mux.AttachAdminRoutes(httpMux)
		database.AttachAdminRoutes(httpMux)

		srv := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(httpMux),
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := srv.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
	}()

	wg.Wait()
	log.Printf("graceful shutdown complete")
	return nil
}
