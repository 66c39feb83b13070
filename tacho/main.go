package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gotacho/pkg/button"
	"github.com/itohio/gotacho/pkg/config"
	"github.com/itohio/gotacho/pkg/gps"
	"github.com/itohio/gotacho/pkg/rotation"
	"github.com/itohio/gotacho/pkg/session"
	"github.com/itohio/gotacho/pkg/storage"
	"github.com/itohio/gotacho/pkg/telem"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use mocked device instead of serial port")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override serial port if provided via command line
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	// Create Fyne application
	application := app.NewWithID("com.itohio.gotacho")

	// Create main window
	window := application.NewWindow("Tachometer Logger")
	window.Resize(fyne.NewSize(520, 360))
	window.CenterOnScreen()

	// Create application state
	appState := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		window:     window,
		useMock:    *mockFlag,
	}

	// Create toolbar and dashboard
	toolbar := createToolbar(appState)
	appState.dash = newDashboard()

	content := container.NewBorder(
		toolbar,
		nil,
		nil,
		nil,
		appState.dash.canvas(),
	)

	window.SetContent(content)
	window.ShowAndRun()
}

// appState holds the application state.
type appState struct {
	cfg        *config.Config
	configPath string
	device     telem.Device
	loop       *eventLoop
	dash       *dashboard
	window     fyne.Window
	connectBtn *widget.Button
	logBtn     *widget.Button
	flushBtn   *widget.Button
	useMock    bool
}

// createToolbar creates the application toolbar with Connect, Settings, Log
// and Flush buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	// Connect button with icon
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	// Settings button with icon
	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	// Log button mirrors a click of the physical button: start or stop a
	// logging session.
	logBtn := widget.NewButtonWithIcon("Log", theme.MediaRecordIcon(), func() {
		if state.loop != nil {
			state.loop.Click()
		}
	})
	logBtn.Disable()
	state.logBtn = logBtn

	// Flush button mirrors a long press: manual checkpoint of buffered data.
	flushBtn := widget.NewButtonWithIcon("Flush", theme.DocumentSaveIcon(), func() {
		if state.loop != nil {
			state.loop.LongPress()
		}
	})
	flushBtn.Disable()
	state.flushBtn = flushBtn

	return container.NewBorder(
		nil, // top
		nil, // bottom
		container.NewHBox(connectBtn, settingsBtn), // left
		container.NewHBox(logBtn, flushBtn),        // right
		nil, // center (spacer)
	)
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		// Disconnect - close the device, the event loop drains and exits
		state.device.Close()
		if state.loop != nil {
			state.loop.Wait()
			state.loop = nil
		}
		state.device = nil
		state.logBtn.Disable()
		state.flushBtn.Disable()
		if state.useMock {
			fmt.Println("Disconnected from mocked device")
		} else {
			fmt.Println("Disconnected from serial port")
		}
	} else {
		// Connect
		var device telem.Device
		if state.useMock {
			device = telem.NewMock(&state.cfg.Mock)
			fmt.Println("Using mocked device")
		} else {
			device = telem.New(state.cfg.Serial.Port, state.cfg.Serial.BaudRate, telem.DefaultBufferSize)
		}

		if err := device.Connect(); err != nil {
			if state.useMock {
				dialog.ShowError(fmt.Errorf("failed to connect to mocked device: %w", err), state.window)
			} else {
				dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err), state.window)
			}
			return
		}
		state.device = device
		if state.useMock {
			fmt.Printf("Connected to mocked device\n")
		} else {
			fmt.Printf("Connected to serial port: %s\n", state.cfg.Serial.Port)
		}

		state.loop = newEventLoop(state.cfg, device, state.dash.update)
		go state.loop.Run()

		state.logBtn.Enable()
		state.flushBtn.Enable()
	}
}

// eventLoop is the single goroutine that owns all session state. Telemetry
// events and UI commands funnel into it; only pulse capture happens outside
// (on the device reader goroutine, through the estimator's atomic handoff).
type eventLoop struct {
	cfg *config.Config
	dev telem.Device

	dec *gps.Decoder
	est *rotation.Estimator
	btn *button.Debouncer
	ctl *session.Controller

	onStatus func(session.Status, float32)

	rawHigh bool // last reported button level, true = released
	cmds    chan func(now time.Time)
	done    chan struct{}
}

// newEventLoop wires the decode/estimate/session chain for one connection.
func newEventLoop(cfg *config.Config, dev telem.Device, onStatus func(session.Status, float32)) *eventLoop {
	est := rotation.New(cfg.Rotation)
	vol := storage.NewDirVolume(cfg.Storage.MountPath)

	return &eventLoop{
		cfg:      cfg,
		dev:      dev,
		dec:      gps.NewDecoder(),
		est:      est,
		btn:      button.New(cfg.Button.Debounce, cfg.Button.LongPress),
		ctl:      session.NewController(cfg, vol, est),
		onStatus: onStatus,
		rawHigh:  true,
		cmds:     make(chan func(now time.Time), 4),
		done:     make(chan struct{}),
	}
}

// Click requests a session start/stop toggle from the UI.
func (l *eventLoop) Click() {
	select {
	case l.cmds <- func(now time.Time) { l.ctl.HandleClick(now) }:
	default:
	}
}

// LongPress requests a manual flush from the UI.
func (l *eventLoop) LongPress() {
	select {
	case l.cmds <- func(now time.Time) { l.ctl.HandleLongPress(now) }:
	default:
	}
}

// Wait blocks until the loop goroutine has exited.
func (l *eventLoop) Wait() { <-l.done }

// Run consumes device events until the events channel closes. The refresh
// ticker drives everything periodic: button debouncing, the rotation
// estimate, session housekeeping and the dashboard update.
func (l *eventLoop) Run() {
	defer close(l.done)

	ticker := time.NewTicker(l.cfg.Rotation.Refresh)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-l.dev.Events():
			if !ok {
				return
			}
			l.handleEvent(ev)
		case cmd := <-l.cmds:
			cmd(time.Now())
		case now := <-ticker.C:
			l.btn.Update(l.rawHigh, now)
			if l.btn.TakeClick() {
				l.ctl.HandleClick(now)
			}
			if l.btn.TakeLongPress() {
				l.ctl.HandleLongPress(now)
			}

			l.est.Estimate(now)
			l.ctl.Tick(now)

			status := l.ctl.Status(now)
			rpm := l.est.Displayed()
			fyne.Do(func() {
				l.onStatus(status, rpm)
			})
		}
	}
}

func (l *eventLoop) handleEvent(ev telem.Event) {
	switch ev.Type {
	case telem.EventSentence:
		l.ctl.NoteSentence(ev.Received)
		updated, err := l.dec.Sentence(ev.Sentence, ev.Received)
		if err != nil {
			log.Printf("Failed to decode sentence '%s': %v", ev.Sentence, err)
			return
		}
		if updated {
			l.ctl.OfferFix(l.dec.Fix(), ev.Received)
		}
	case telem.EventPulse:
		l.est.Capture(ev.PulseMicros)
	case telem.EventButton:
		l.rawHigh = ev.ButtonHigh
		l.btn.Update(l.rawHigh, ev.Received)
	}
}
