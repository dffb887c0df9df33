package chathost

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/Vioneyy/AI-VTuber-demo/core/chathost"

var logger = otelslog.NewLogger(scopeName)
