package builtins

import "github.com/swazilang/asyncrt/internal/stdin"

// Stdin builds the "stdin" module (§6):
// on, prompt, pause, resume, setRawMode, setDiscardOnPause, close.
func Stdin(rd *stdin.Reader) Module {
	return Module{
		"on": func(args ...any) (any, error) {
			event, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			cb, err := argCallback(args, 1)
			if err != nil {
				return nil, err
			}
			return nil, rd.On(event, func(a ...any) { invokeViaBridge(cb, a) })
		},
		"prompt": func(args ...any) (any, error) {
			text, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			rd.Prompt(text)
			return nil, nil
		},
		"pause": func(args ...any) (any, error) {
			rd.Pause()
			return nil, nil
		},
		"resume": func(args ...any) (any, error) {
			rd.Resume()
			return nil, nil
		},
		"setRawMode": func(args ...any) (any, error) {
			rd.SetRawMode(argBool(args, 0))
			return nil, nil
		},
		"setDiscardOnPause": func(args ...any) (any, error) {
			rd.SetDiscardOnPause(argBool(args, 0))
			return nil, nil
		},
		"close": func(args ...any) (any, error) {
			// The stdin reader has no explicit close in this design (§4.6);
			// pausing permanently is the documented equivalent since the
			// underlying fd is process-owned and outlives the script.
			rd.Pause()
			return nil, nil
		},
	}
}
