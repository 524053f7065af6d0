package builtins

import (
	"os"

	"github.com/swazilang/asyncrt/internal/fspromise"
	"github.com/swazilang/asyncrt/internal/promise"
)

// FS builds the "fs.promises" module (§6): every operation returns a
// *promise.Promise, settled on the loop thread via the fspromise package.
func FS(sched promise.Enqueuer, loop promise.LoopSubmitter) Module {
	return Module{
		"readFile": func(args ...any) (any, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			return fspromise.ReadFile(sched, loop, path), nil
		},
		"writeFile": func(args ...any) (any, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			data, err := argBytes(args, 1)
			if err != nil {
				return nil, err
			}
			return fspromise.WriteFile(sched, loop, path, data, 0), nil
		},
		"exists": func(args ...any) (any, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			return fspromise.Exists(sched, loop, path), nil
		},
		"listDir": func(args ...any) (any, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			return fspromise.ListDir(sched, loop, path), nil
		},
		"copy": func(args ...any) (any, error) {
			src, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			dst, err := argString(args, 1)
			if err != nil {
				return nil, err
			}
			return fspromise.Copy(sched, loop, src, dst), nil
		},
		"move": func(args ...any) (any, error) {
			src, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			dst, err := argString(args, 1)
			if err != nil {
				return nil, err
			}
			return fspromise.Move(sched, loop, src, dst), nil
		},
		"remove": func(args ...any) (any, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			return fspromise.Remove(sched, loop, path, argBool(args, 1)), nil
		},
		"makeDir": func(args ...any) (any, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			return fspromise.MakeDir(sched, loop, path, argBool(args, 1), 0), nil
		},
		"stat": func(args ...any) (any, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			return fspromise.Stat(sched, loop, path), nil
		},
		"lstat": func(args ...any) (any, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			return fspromise.Lstat(sched, loop, path), nil
		},
		"chmod": func(args ...any) (any, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			mode, err := argInt(args, 1)
			if err != nil {
				return nil, err
			}
			return fspromise.Chmod(sched, loop, path, os.FileMode(mode)), nil
		},
		"symlink": func(args ...any) (any, error) {
			target, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			linkPath, err := argString(args, 1)
			if err != nil {
				return nil, err
			}
			return fspromise.Symlink(sched, loop, target, linkPath), nil
		},
		"readlink": func(args ...any) (any, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			return fspromise.Readlink(sched, loop, path), nil
		},
		"chown": func(args ...any) (any, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			uid, err := argInt(args, 1)
			if err != nil {
				return nil, err
			}
			gid, err := argInt(args, 2)
			if err != nil {
				return nil, err
			}
			return fspromise.Chown(sched, loop, path, uid, gid), nil
		},
		"access": func(args ...any) (any, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			mode, _ := argInt(args, 1)
			return fspromise.Access(sched, loop, path, fspromise.AccessMode(mode)), nil
		},
	}
}
