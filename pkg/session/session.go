package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/itohio/gotacho/pkg/config"
	"github.com/itohio/gotacho/pkg/gps"
	"github.com/itohio/gotacho/pkg/logbuf"
	"github.com/itohio/gotacho/pkg/storage"
)

// Header is the CSV header line written once to every newly created log file.
const Header = "lat,lon,speed_mph,UTC_datetime,RPM\n"

// gpsActivityWindow is how recently a sentence must have arrived for the
// receiver to count as connected. Independent of fix validity: a searching
// receiver still talks.
const gpsActivityWindow = 3 * time.Second

// State is the session lifecycle state.
type State int

const (
	// Idle means no logging session is open.
	Idle State = iota
	// Active means a session is open and bound to one file.
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// RateSource supplies rotation-rate values for display and log records.
type RateSource interface {
	// Displayed returns the smoothed display rate.
	Displayed() float32
	// TakeAverage returns the average rate since the last take and resets
	// the accumulator.
	TakeAverage() float64
}

// Status is a read-only snapshot for the display layer.
type Status struct {
	State          State
	FileName       string
	Records        int // records composed this session
	Buffered       int // records awaiting flush
	StoragePresent bool
	GpsConnected   bool // sentences received recently, regardless of fix
	FixValid       bool
	Satellites     int
	SpeedMph       int
	RPM            float32
	Message        string // transient status message, empty once expired
}

// Controller owns the complete logging session state: buffer, flush timing,
// file handle, storage presence and the Idle/Active state machine. All
// methods must be called from a single goroutine; the controller is the
// "main loop" owner of everything except rotation pulse capture.
type Controller struct {
	cfg  *config.Config
	vol  storage.Volume
	mon  *storage.Monitor
	buf  *logbuf.Buffer
	sch  *logbuf.Scheduler
	rate RateSource

	state          State
	fileName       string
	file           storage.File
	startedAt      time.Time
	lastTransition time.Time

	// lastLoggedSecond prevents duplicate records within one GPS-reported
	// second. -1 means nothing logged yet this session.
	lastLoggedSecond int
	records          int

	lastFix      gps.Fix
	lastSentence time.Time

	message      string
	messageUntil time.Time
}

// NewController creates a Controller over the given volume.
func NewController(cfg *config.Config, vol storage.Volume, rate RateSource) *Controller {
	return &Controller{
		cfg:              cfg,
		vol:              vol,
		mon:              storage.NewMonitor(vol, cfg.Storage.CheckInterval),
		buf:              logbuf.NewBuffer(cfg.Logging.BufferLines),
		sch:              logbuf.NewScheduler(cfg.Logging.FlushInterval),
		rate:             rate,
		lastLoggedSecond: -1,
	}
}

// State returns the current session state.
func (c *Controller) State() State { return c.state }

// Tick runs the periodic triggers: storage presence polling, the time-based
// flush, and status message expiry. Call it once per loop pass.
func (c *Controller) Tick(now time.Time) {
	if c.message != "" && now.After(c.messageUntil) {
		c.message = ""
	}

	switch c.mon.Poll(now) {
	case storage.Inserted:
		c.setMessage(now, "CARD IN")
	case storage.Removed:
		if c.state == Active {
			// Best-effort flush; the medium is already gone, so a
			// failure here is expected and not surfaced twice.
			if err := c.buf.Flush(c); err != nil {
				log.Printf("flush on removal: %v", err)
				c.buf.Reset()
			}
			c.closeFile()
			c.state = Idle
		}
		c.setMessage(now, "CARD OUT")
	}

	if c.state == Active && c.sch.Due(now) {
		c.flush(now)
	}
}

// HandleClick toggles the session on a button click.
func (c *Controller) HandleClick(now time.Time) {
	if c.state == Active {
		c.Stop(now)
		return
	}
	c.Start(now)
}

// HandleLongPress forces an immediate flush of buffered records while a
// session is active, a manual checkpoint before pulling the card.
func (c *Controller) HandleLongPress(now time.Time) {
	if c.state != Active {
		return
	}
	c.flush(now)
	if c.state == Active {
		c.setMessage(now, "FLUSHED")
	}
}

// Start opens a new logging session. It is rejected when storage is absent
// or the transition cool-down has not elapsed.
func (c *Controller) Start(now time.Time) bool {
	if c.state == Active {
		return false
	}
	if !c.lastTransition.IsZero() && now.Sub(c.lastTransition) < c.cfg.Logging.Cooldown {
		return false
	}
	if !c.mon.Present() {
		c.setMessage(now, "NO CARD")
		return false
	}

	var year int
	var month time.Month
	var day int
	if c.lastFix.DateValid {
		year, month, day = c.lastFix.Year, c.lastFix.Month, c.lastFix.Day
	}
	name := storage.AllocateName(year, month, day, c.vol)

	existed := c.vol.Exists(name)
	f, err := c.vol.OpenAppend(name)
	if err != nil {
		c.setMessage(now, "CARD ERROR")
		return false
	}
	if !existed {
		if _, err := f.Write([]byte(Header)); err != nil {
			f.Close()
			c.setMessage(now, "CARD ERROR")
			return false
		}
	}

	c.file = f
	c.fileName = name
	c.state = Active
	c.startedAt = now
	c.lastTransition = now
	c.lastLoggedSecond = -1
	c.records = 0
	c.sch.Start(now)
	c.setMessage(now, "LOG "+name)
	return true
}

// Stop ends the session: one flush, one close, back to Idle. Subject to the
// same transition cool-down as Start.
func (c *Controller) Stop(now time.Time) bool {
	if c.state != Active {
		return false
	}
	if now.Sub(c.lastTransition) < c.cfg.Logging.Cooldown {
		return false
	}

	c.flush(now)
	c.closeFile()
	if c.state == Active {
		c.state = Idle
		c.setMessage(now, "STOPPED")
	}
	c.lastTransition = now
	return true
}

// NoteSentence records that a sentence arrived from the receiver, decodable
// or not. It feeds the connected indicator only.
func (c *Controller) NoteSentence(now time.Time) {
	c.lastSentence = now
}

// OfferFix feeds the latest decoded fix. While Active, one record is
// composed per distinct GPS-reported second, provided the fix is valid,
// fresh, and meets the satellite threshold. Detecting a change in the
// reported second (rather than wall-clock cadence) keeps the record rate
// correct regardless of how fast the poll loop runs.
func (c *Controller) OfferFix(fix gps.Fix, now time.Time) {
	c.lastFix = fix

	if c.state != Active {
		return
	}
	if !fix.Loggable(c.cfg.GPS.MinSatellites) || fix.Age(now) > c.cfg.GPS.MaxFixAge {
		return
	}

	second := fix.Hour*3600 + fix.Minute*60 + fix.Second
	if second == c.lastLoggedSecond {
		return
	}
	c.lastLoggedSecond = second

	rpm := int(c.rate.TakeAverage() + 0.5)
	content := fmt.Sprintf("%.6f,%.6f,%d,%04d-%02d-%02d %02d:%02d:%02d,%d",
		fix.Latitude, fix.Longitude, fix.SpeedMph(),
		fix.Year, int(fix.Month), fix.Day, fix.Hour, fix.Minute, fix.Second, rpm)

	err := c.buf.Append(logbuf.NewRecord(content), c)
	switch {
	case err == nil:
		c.records++
	case errors.Is(err, logbuf.ErrWriteFault):
		// Batch already discarded; the new record was still placed, but
		// the session cannot continue on a faulted medium.
		c.records++
		c.fatal(now, "WRITE FAULT")
	case errors.Is(err, logbuf.ErrRecordDropped):
		c.setMessage(now, "BUF FULL")
	default:
		c.setMessage(now, "CARD ERROR")
	}
}

// Status returns the current snapshot for the display layer.
func (c *Controller) Status(now time.Time) Status {
	msg := c.message
	if msg != "" && now.After(c.messageUntil) {
		msg = ""
	}

	var rpm float32
	if c.rate != nil {
		rpm = c.rate.Displayed()
	}

	return Status{
		State:          c.state,
		FileName:       c.fileName,
		Records:        c.records,
		Buffered:       c.buf.Count(),
		StoragePresent: c.mon.Present(),
		GpsConnected:   !c.lastSentence.IsZero() && now.Sub(c.lastSentence) <= gpsActivityWindow,
		FixValid:       c.lastFix.PositionValid && c.lastFix.Age(now) <= c.cfg.GPS.MaxFixAge,
		Satellites:     c.lastFix.Satellites,
		SpeedMph:       c.lastFix.SpeedMph(),
		RPM:            rpm,
		Message:        msg,
	}
}

// Writer returns the session file handle for a flush. Part of logbuf.Sink.
func (c *Controller) Writer() (io.Writer, error) {
	if c.file == nil {
		return nil, errors.New("no open log file")
	}
	return c.file, nil
}

// Reopen closes the session file and reopens it for appending after a short
// write. Part of logbuf.Sink.
func (c *Controller) Reopen() (io.Writer, error) {
	c.closeFile()
	f, err := c.vol.OpenAppend(c.fileName)
	if err != nil {
		return nil, err
	}
	c.file = f
	return f, nil
}

// flush drains the buffer through the file handle. Any flush error is
// session-fatal per the write-retry policy: the retry already happened one
// level down.
func (c *Controller) flush(now time.Time) {
	err := c.buf.Flush(c)
	c.sch.Flushed(now)
	if err == nil {
		if c.file != nil {
			if err := c.file.Sync(); err != nil {
				log.Printf("sync %s: %v", c.fileName, err)
			}
		}
		return
	}
	c.fatal(now, "WRITE FAULT")
}

// fatal forces the session out of Active after an unrecoverable storage
// fault. Unwritten records for the failed flush are gone; that loss is
// reported, not masked.
func (c *Controller) fatal(now time.Time, msg string) {
	c.buf.Reset()
	c.closeFile()
	c.state = Idle
	c.lastTransition = now
	c.setMessage(now, msg)
}

func (c *Controller) closeFile() {
	if c.file == nil {
		return
	}
	if err := c.file.Close(); err != nil {
		log.Printf("close %s: %v", c.fileName, err)
	}
	c.file = nil
}

func (c *Controller) setMessage(now time.Time, msg string) {
	c.message = msg
	c.messageUntil = now.Add(c.cfg.Logging.MessageTTL)
}
