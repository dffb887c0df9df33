package oto

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/Vioneyy/AI-VTuber-demo/core/playback/oto"

var logger = otelslog.NewLogger(scopeName)
