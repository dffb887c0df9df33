package deepgram

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/Vioneyy/AI-VTuber-demo/core/speechtotext/deepgram"

var logger = otelslog.NewLogger(scopeName)
