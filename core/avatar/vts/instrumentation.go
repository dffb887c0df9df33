package vts

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/Vioneyy/AI-VTuber-demo/core/avatar/vts"

var logger = otelslog.NewLogger(scopeName)
