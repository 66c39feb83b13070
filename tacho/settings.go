package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gotacho/pkg/telem"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createGPSTab(state),
		createRotationTab(state),
		createLoggingTab(state),
		createStorageTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// saveConfig persists the config and reports failures in a dialog.
func saveConfig(state *appState) {
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	// Get available serial ports
	ports, err := telem.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
		currentDisplay = currentPort
	}

	portSelect := widget.NewSelect(portOptions, func(selected string) {
		// Selection handler - will be called on submit
	})
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(fmt.Sprintf("%d", state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			if portSelect.Selected != "" {
				selectedPort := portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected // Fallback to selected text
				}

				portChanged := state.cfg.Serial.Port != selectedPort
				wasConnected := state.device != nil && state.device.IsConnected()

				state.cfg.Serial.Port = selectedPort
				if baud, err := strconv.Atoi(baudEntry.Text); err == nil {
					state.cfg.Serial.BaudRate = baud
				}
				saveConfig(state)

				// If port changed and device was connected, reconnect
				if portChanged && wasConnected {
					handleConnect(state) // disconnect
					handleConnect(state) // reconnect with new port
				}
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createGPSTab creates the GPS fix quality configuration tab.
func createGPSTab(state *appState) *container.TabItem {
	minSatsEntry := widget.NewEntry()
	minSatsEntry.SetText(fmt.Sprintf("%d", state.cfg.GPS.MinSatellites))

	maxAgeEntry := widget.NewEntry()
	maxAgeEntry.SetText(state.cfg.GPS.MaxFixAge.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Min Satellites", Widget: minSatsEntry},
			{Text: "Max Fix Age", Widget: maxAgeEntry},
		},
		OnSubmit: func() {
			if ms, err := strconv.Atoi(minSatsEntry.Text); err == nil {
				state.cfg.GPS.MinSatellites = ms
			}
			if ma, err := time.ParseDuration(maxAgeEntry.Text); err == nil {
				state.cfg.GPS.MaxFixAge = ma
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("GPS", form)
}

// createRotationTab creates the rotation sensor configuration tab.
func createRotationTab(state *appState) *container.TabItem {
	pprEntry := widget.NewEntry()
	pprEntry.SetText(fmt.Sprintf("%d", state.cfg.Rotation.PulsesPerRev))

	debounceEntry := widget.NewEntry()
	debounceEntry.SetText(state.cfg.Rotation.PulseDebounce.String())

	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(state.cfg.Rotation.Timeout.String())

	maxDeltaEntry := widget.NewEntry()
	maxDeltaEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Rotation.MaxDeltaPerMs))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Pulses per Revolution", Widget: pprEntry},
			{Text: "Pulse Debounce", Widget: debounceEntry},
			{Text: "Rate Timeout", Widget: timeoutEntry},
			{Text: "Max Display Delta (RPM/ms)", Widget: maxDeltaEntry},
		},
		OnSubmit: func() {
			if ppr, err := strconv.Atoi(pprEntry.Text); err == nil {
				state.cfg.Rotation.PulsesPerRev = ppr
			}
			if db, err := time.ParseDuration(debounceEntry.Text); err == nil {
				state.cfg.Rotation.PulseDebounce = db
			}
			if to, err := time.ParseDuration(timeoutEntry.Text); err == nil {
				state.cfg.Rotation.Timeout = to
			}
			if md, err := strconv.ParseFloat(maxDeltaEntry.Text, 64); err == nil {
				state.cfg.Rotation.MaxDeltaPerMs = md
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Rotation", form)
}

// createLoggingTab creates the logging configuration tab.
func createLoggingTab(state *appState) *container.TabItem {
	bufferEntry := widget.NewEntry()
	bufferEntry.SetText(fmt.Sprintf("%d", state.cfg.Logging.BufferLines))

	flushEntry := widget.NewEntry()
	flushEntry.SetText(state.cfg.Logging.FlushInterval.String())

	cooldownEntry := widget.NewEntry()
	cooldownEntry.SetText(state.cfg.Logging.Cooldown.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Buffer Lines", Widget: bufferEntry},
			{Text: "Flush Interval", Widget: flushEntry},
			{Text: "Session Cool-down", Widget: cooldownEntry},
		},
		OnSubmit: func() {
			if bl, err := strconv.Atoi(bufferEntry.Text); err == nil {
				state.cfg.Logging.BufferLines = bl
			}
			if fi, err := time.ParseDuration(flushEntry.Text); err == nil {
				state.cfg.Logging.FlushInterval = fi
			}
			if cd, err := time.ParseDuration(cooldownEntry.Text); err == nil {
				state.cfg.Logging.Cooldown = cd
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Logging", form)
}

// createStorageTab creates the storage configuration tab.
func createStorageTab(state *appState) *container.TabItem {
	mountEntry := widget.NewEntry()
	mountEntry.SetText(state.cfg.Storage.MountPath)

	checkEntry := widget.NewEntry()
	checkEntry.SetText(state.cfg.Storage.CheckInterval.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Mount Path", Widget: mountEntry},
			{Text: "Check Interval", Widget: checkEntry},
		},
		OnSubmit: func() {
			if mountEntry.Text != "" {
				state.cfg.Storage.MountPath = mountEntry.Text
			}
			if ci, err := time.ParseDuration(checkEntry.Text); err == nil {
				state.cfg.Storage.CheckInterval = ci
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Storage", form)
}

// createMockTab creates the Mock device configuration tab.
func createMockTab(state *appState) *container.TabItem {
	latEntry := widget.NewEntry()
	latEntry.SetText(fmt.Sprintf("%.4f", state.cfg.Mock.StartLat))

	lonEntry := widget.NewEntry()
	lonEntry.SetText(fmt.Sprintf("%.4f", state.cfg.Mock.StartLon))

	headingEntry := widget.NewEntry()
	headingEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Mock.Heading))

	speedEntry := widget.NewEntry()
	speedEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Mock.SpeedMph))

	rpmEntry := widget.NewEntry()
	rpmEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Mock.RPM))

	satsEntry := widget.NewEntry()
	satsEntry.SetText(fmt.Sprintf("%d", state.cfg.Mock.Satellites))

	fixRateEntry := widget.NewEntry()
	fixRateEntry.SetText(state.cfg.Mock.FixRate.String())

	fixDelayEntry := widget.NewEntry()
	fixDelayEntry.SetText(state.cfg.Mock.FixDelay.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Start Latitude", Widget: latEntry},
			{Text: "Start Longitude", Widget: lonEntry},
			{Text: "Heading (deg)", Widget: headingEntry},
			{Text: "Speed (mph)", Widget: speedEntry},
			{Text: "RPM", Widget: rpmEntry},
			{Text: "Satellites", Widget: satsEntry},
			{Text: "Fix Rate", Widget: fixRateEntry},
			{Text: "Fix Delay", Widget: fixDelayEntry},
		},
		OnSubmit: func() {
			if lat, err := strconv.ParseFloat(latEntry.Text, 64); err == nil {
				state.cfg.Mock.StartLat = lat
			}
			if lon, err := strconv.ParseFloat(lonEntry.Text, 64); err == nil {
				state.cfg.Mock.StartLon = lon
			}
			if hdg, err := strconv.ParseFloat(headingEntry.Text, 64); err == nil {
				state.cfg.Mock.Heading = hdg
			}
			if spd, err := strconv.ParseFloat(speedEntry.Text, 64); err == nil {
				state.cfg.Mock.SpeedMph = spd
			}
			if rpm, err := strconv.ParseFloat(rpmEntry.Text, 64); err == nil {
				state.cfg.Mock.RPM = rpm
			}
			if sats, err := strconv.Atoi(satsEntry.Text); err == nil {
				state.cfg.Mock.Satellites = sats
			}
			if fr, err := time.ParseDuration(fixRateEntry.Text); err == nil {
				state.cfg.Mock.FixRate = fr
			}
			if fd, err := time.ParseDuration(fixDelayEntry.Text); err == nil {
				state.cfg.Mock.FixDelay = fd
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Mock", form)
}
