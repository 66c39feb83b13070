package main

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gotacho/pkg/session"
)

// dashboard is the main display: rotation rate and speed front and center,
// GPS and card indicators, session state and the transient status message.
type dashboard struct {
	rpm     *widget.Label
	speed   *widget.Label
	gps     *widget.Label
	card    *widget.Label
	state   *widget.Label
	file    *widget.Label
	records *widget.Label
	message *widget.Label
}

func newDashboard() *dashboard {
	d := &dashboard{
		rpm:     widget.NewLabelWithStyle("0 RPM", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		speed:   widget.NewLabelWithStyle("0 mph", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		gps:     widget.NewLabel("NO GPS"),
		card:    widget.NewLabel("NO CARD"),
		state:   widget.NewLabel("idle"),
		file:    widget.NewLabel(""),
		records: widget.NewLabel(""),
		message: widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Italic: true}),
	}
	return d
}

// canvas lays the dashboard widgets out.
func (d *dashboard) canvas() fyne.CanvasObject {
	readouts := container.NewGridWithColumns(2, d.rpm, d.speed)
	indicators := container.NewGridWithColumns(4, d.gps, d.card, d.state, d.records)

	return container.NewVBox(
		readouts,
		widget.NewSeparator(),
		indicators,
		d.file,
		widget.NewSeparator(),
		d.message,
	)
}

// update refreshes every widget from one status snapshot. Must run on the
// main Fyne thread.
func (d *dashboard) update(st session.Status, rpm float32) {
	d.rpm.SetText(fmt.Sprintf("%.0f RPM", rpm))

	switch {
	case st.FixValid:
		d.speed.SetText(fmt.Sprintf("%d mph", st.SpeedMph))
		d.gps.SetText(fmt.Sprintf("GPS %d", st.Satellites))
	case st.GpsConnected:
		// Receiver is talking but has no usable fix yet.
		d.speed.SetText("-- mph")
		d.gps.SetText("GPS ...")
	default:
		d.speed.SetText("-- mph")
		d.gps.SetText("NO GPS")
	}

	if st.StoragePresent {
		d.card.SetText("CARD")
	} else {
		d.card.SetText("NO CARD")
	}

	d.state.SetText(st.State.String())
	if st.State == session.Active {
		d.file.SetText(fmt.Sprintf("Logging to %s", st.FileName))
		d.records.SetText(fmt.Sprintf("%d rec", st.Records))
	} else {
		d.file.SetText("")
		d.records.SetText("")
	}

	d.message.SetText(st.Message)
}
