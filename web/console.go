//go:build js

package web

import (
	"github.com/gopherjs/gopherjs/js"

	"github.com/simukka/ucm-chill/common"
)

// InstallConsoleSink routes common.Debug* output to the browser console.
func InstallConsoleSink() {
	console := js.Global.Get("console")
	if console == nil || console == js.Undefined {
		return
	}
	common.LogSink = func(level common.LogLevel, args ...interface{}) {
		method := "log"
		switch level {
		case common.LevelWarn:
			method = "warn"
		case common.LevelError:
			method = "error"
		}
		console.Call(method, args...)
	}
}
