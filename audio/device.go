package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"fluent/apperr"
)

// ErrPickerCancelled is returned when the user leaves the picker with Ctrl+C.
var ErrPickerCancelled = errors.New("device selection cancelled")

type pickerAction int

const (
	pickerMove pickerAction = iota
	pickerSelect
	pickerCancel
)

// pickerKey maps one read from a raw terminal to a new cursor position.
func pickerKey(in []byte, cursor, count int) (int, pickerAction) {
	switch {
	case len(in) == 1:
		switch in[0] {
		case '\r', '\n':
			return cursor, pickerSelect
		case 3, 'q':
			return cursor, pickerCancel
		case 'j':
			cursor++
		case 'k':
			cursor--
		}
	case len(in) == 3 && in[0] == 0x1b && in[1] == '[':
		switch in[2] {
		case 'A':
			cursor--
		case 'B':
			cursor++
		}
	}
	return max(0, min(cursor, count-1)), pickerMove
}

func renderPicker(w io.Writer, devices []DeviceInfo, cursor int) {
	fmt.Fprint(w, "\r\x1b[J")
	fmt.Fprint(w, "Select microphone (↑/↓, Enter to confirm):\r\n\r\n")
	for i, d := range devices {
		btTag := ""
		if IsBluetooth(d.Name) {
			btTag = " \x1b[33m[⚠ lower quality for pronunciation feedback]\x1b[0m"
		}
		if i == cursor {
			fmt.Fprintf(w, "  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, btTag)
		} else {
			fmt.Fprintf(w, "    %s%s\r\n", d.Name, btTag)
		}
	}
}

// SelectDevice presents an interactive microphone picker on the terminal.
// With a single device it is returned without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, apperr.Wrap(apperr.DeviceUnavailable, "enumerate devices", err)
	}
	if len(devices) == 0 {
		return nil, apperr.New(apperr.DeviceUnavailable, "no capture devices found")
	}
	if len(devices) == 1 {
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	cursor := 0
	renderPicker(os.Stdout, devices, cursor)

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}

		var action pickerAction
		cursor, action = pickerKey(buf[:n], cursor, len(devices))
		switch action {
		case pickerSelect:
			fmt.Print("\r\n")
			return &devices[cursor], nil
		case pickerCancel:
			fmt.Print("\r\n")
			return nil, ErrPickerCancelled
		}

		fmt.Printf("\x1b[%dA", len(devices)+2)
		renderPicker(os.Stdout, devices, cursor)
	}
}
