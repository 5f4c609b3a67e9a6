// Command flicker drives two LEDs as a flickering flame, with brightness
// raised by holding a button, and optionally reports state over MQTT and HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/flicker/internal/gpio"
	"github.com/sweeney/flicker/internal/logic"
	"github.com/sweeney/flicker/internal/mqtt"
	"github.com/sweeney/flicker/internal/status"
	"github.com/sweeney/flicker/internal/tui"
	"github.com/sweeney/flicker/internal/web"
)

// Default timer cadences: 8 MHz oscillator, instruction clock /4, timer 0
// prescaled 1:2 overflowing every 256 counts; timer 1 prescaled 1:8
// overflowing every 65536 counts.
const (
	DefaultPwmTick   = 256 * time.Microsecond
	DefaultIncrement = 262144 * time.Microsecond
)

// PublishQueue is the number of events held for the publishing goroutine.
const PublishQueue = 64

type options struct {
	backend    string
	gpio       gpio.Config
	pwmTick    time.Duration
	increment  time.Duration
	seed       uint32
	broker     string
	heartbeat  time.Duration
	httpAddr   string
	wsBroker   string
	logFile    string
	printState bool
}

func main() {
	opts := options{gpio: gpio.DefaultConfig()}
	flag.StringVar(&opts.backend, "backend", "gpio", "Output backend: gpio (Linux GPIO) or tui (terminal simulator)")
	flag.StringVar(&opts.gpio.Chip, "chip", gpio.DefaultChip, "GPIO chip name")
	flag.IntVar(&opts.gpio.LEDs[0], "pin-led1", gpio.DefaultPinLED1, "BCM pin number for LED 1")
	flag.IntVar(&opts.gpio.LEDs[1], "pin-led2", gpio.DefaultPinLED2, "BCM pin number for LED 2")
	flag.IntVar(&opts.gpio.Hold, "pin-hold", gpio.DefaultPinHold, "BCM pin number for the hold button")
	flag.DurationVar(&opts.gpio.Debounce, "debounce", 0, "Hold button debounce (0 to disable)")
	flag.DurationVar(&opts.pwmTick, "pwm-tick", DefaultPwmTick, "Software PWM tick period")
	flag.DurationVar(&opts.increment, "increment", DefaultIncrement, "Brightness ramp period while held")
	seed := flag.Uint("seed", 0, "Random seed (0 seeds from free-running clocks)")
	flag.StringVar(&opts.broker, "broker", "", "MQTT broker address (empty to disable)")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&opts.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live page updates ("=broker" derives from -broker, "off" disables)`)
	flag.StringVar(&opts.logFile, "log", "", "Log file (default stderr; the tui backend discards logs unless set)")
	flag.BoolVar(&opts.printState, "print-state", false, "Print hold input state and exit")

	flag.Parse()
	opts.seed = uint32(*seed)
	opts.wsBroker = resolveWSBroker(*wsBroker, opts.broker)

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts options) error {
	if opts.pwmTick <= 0 || opts.increment <= 0 {
		return fmt.Errorf("timer periods must be positive (pwm-tick=%v increment=%v)", opts.pwmTick, opts.increment)
	}
	if err := setupLog(opts); err != nil {
		return err
	}

	port, quit, err := configureHardware(opts)
	if err != nil {
		return err
	}
	defer port.Close()

	// Print state mode
	if opts.printState {
		held, err := port.Level()
		if err != nil {
			return fmt.Errorf("read hold input: %w", err)
		}
		fmt.Printf("HOLD: %s\n", stateString(held))
		return nil
	}

	// Initialize MQTT
	var broker mqtt.Publisher = mqtt.NopPublisher{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.NopPublisher{}
	if opts.broker != "" {
		rp, err := mqtt.NewRealPublisher(opts.broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		broker, mqttStatus = rp, rp
	}
	// The loop must never wait on the broker.
	publisher := mqtt.NewAsync(broker, PublishQueue)
	defer publisher.Close()

	startTime := time.Now()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(startTime, status.Config{
		Backend:     opts.backend,
		PwmTickUs:   opts.pwmTick.Microseconds(),
		IncrementMs: opts.increment.Milliseconds(),
		HeartbeatMs: opts.heartbeat.Milliseconds(),
		Broker:      opts.broker,
		HTTPAddr:    opts.httpAddr,
		WSBroker:    opts.wsBroker,
	})

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to queue startup event: %v", err)
	}

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	state := logic.NewState(0)
	if opts.seed != 0 {
		state.Rand.Seed(opts.seed, 0)
	} else {
		state.Rand.SeedFrom(wallCounter{}, uptimeCounter{since: startTime})
	}

	pwmTicker := time.NewTicker(opts.pwmTick)
	defer pwmTicker.Stop()
	incTimer := newIncrementTimer(opts.increment)
	defer incTimer.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("started: backend=%s pwm-tick=%v increment=%v broker=%q heartbeat=%v",
		opts.backend, opts.pwmTick, opts.increment, opts.broker, opts.heartbeat)

	l := &loop{
		port:       port,
		dispatcher: logic.NewDispatcher(state, port, incTimer, startTime),
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		heartbeat:  opts.heartbeat,
		now:        time.Now,
		pwmTick:    pwmTicker.C,
		incTick:    incTimer.C(),
		edges:      port.Edges(),
		sig:        sigCh,
		quit:       quit,
	}
	return l.run()
}

// configureHardware opens the selected backend. The returned quit channel is
// closed when the backend asks to exit; it is nil for GPIO.
func configureHardware(opts options) (gpio.Port, <-chan struct{}, error) {
	switch opts.backend {
	case "gpio":
		p, err := gpio.NewRealPort(opts.gpio)
		if err != nil {
			return nil, nil, fmt.Errorf("init gpio: %w", err)
		}
		return p, nil, nil
	case "tui":
		p, err := tui.NewTerminal(opts.gpio.Buffer)
		if err != nil {
			return nil, nil, fmt.Errorf("init tui: %w", err)
		}
		return p, p.Quit(), nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", opts.backend)
	}
}

func setupLog(opts options) error {
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(f)
		return nil
	}
	if opts.backend == "tui" && !opts.printState {
		log.SetOutput(io.Discard)
	}
	return nil
}

// incrementTimer is the restartable brightness ramp timer.
type incrementTimer struct {
	ticker *time.Ticker
	period time.Duration
}

func newIncrementTimer(period time.Duration) *incrementTimer {
	return &incrementTimer{ticker: time.NewTicker(period), period: period}
}

// Restart begins a new full period from now.
func (t *incrementTimer) Restart() { t.ticker.Reset(t.period) }

func (t *incrementTimer) C() <-chan time.Time { return t.ticker.C }

func (t *incrementTimer) Stop() { t.ticker.Stop() }

// wallCounter and uptimeCounter stand in for the two free-running hardware
// timers sampled once to seed the generator.
type wallCounter struct{}

func (wallCounter) Count() uint32 { return uint32(time.Now().UnixNano()) }

type uptimeCounter struct{ since time.Time }

func (c uptimeCounter) Count() uint32 { return uint32(time.Since(c.since).Nanoseconds() << 7) }

// resolveWSBroker converts the -ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	if broker == "" {
		return ""
	}
	u, err := url.Parse(broker)
	if err != nil || u.Hostname() == "" {
		log.Printf("ws-broker: cannot derive from -broker %q", broker)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
