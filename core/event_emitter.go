package orchestration

import "github.com/Vioneyy/AI-VTuber-demo/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts RunOptions) eventEmitter {
	return func(event events.Event) {
		if opts.onEvent != nil {
			opts.onEvent(event)
		}

		switch typedEvent := event.(type) {
		case events.ResponseFinal:
			if opts.onResponse != nil {
				opts.onResponse(typedEvent.ItemID, typedEvent.Text)
			}
		case events.PlaybackStarted:
			if opts.onPlaybackStateChanged != nil {
				opts.onPlaybackStateChanged(true)
			}
		case events.PlaybackEnded:
			if opts.onPlaybackStateChanged != nil {
				opts.onPlaybackStateChanged(false)
			}
		case events.ConnectionStateChanged:
			if opts.onConnectionStateChanged != nil {
				opts.onConnectionStateChanged(typedEvent.Link, typedEvent.State)
			}
		case events.PipelineItemCompleted:
			if opts.onItemCompleted != nil {
				opts.onItemCompleted(typedEvent.ItemID)
			}
		}
	}
}
