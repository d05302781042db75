package client

import (
	"errors"

	"github.com/Mmx233/PatchSync/filesync"
	"github.com/Mmx233/PatchSync/metrics"
	"github.com/Mmx233/PatchSync/protocol"
	"github.com/Mmx233/PatchSync/state"
	"github.com/rs/zerolog"
)

// FileSync applies file instructions from the server.
type FileSync interface {
	Delete(name string) error
	Write(name string, content []byte) error
}

// Outcome describes the effect of one dispatched message.
type Outcome struct {
	Command  string
	Dropped  bool     // Parse or integrity failure, or unknown command
	Deleted  []string // DELETE_FILES targets handled
	Updated  string   // UPDATE_FILES target written
	Rejected string   // UPDATE_FILES target refused
	Err      error    // Write failure; the session continues but the sync failed
}

// Dispatcher routes decoded messages to the shared state and the file executor.
// Only the reactor calls Dispatch.
type Dispatcher struct {
	store   *state.Store
	files   FileSync
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(store *state.Store, files FileSync, m *metrics.Metrics, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		files:   files,
		metrics: m,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch decodes one message body and applies it. Malformed messages are
// logged and dropped; they never fail the session.
func (d *Dispatcher) Dispatch(body []byte) Outcome {
	msg, err := protocol.Decode(body)
	if err != nil {
		// Only UPDATE_FILES bodies fail to decode
		var name string
		if fields := protocol.HeaderFields(body); len(fields) > 0 {
			name = fields[0]
		}
		d.logger.Warn().Err(err).Str("file", name).Msg("dropping malformed message")
		d.metrics.MessageReceived(protocol.CmdUpdateFiles)
		d.metrics.MessageDropped(metrics.ReasonParse)
		return Outcome{Command: protocol.CmdUpdateFiles, Dropped: true, Rejected: name}
	}

	switch msg.Command {
	case protocol.CmdServerInfo:
		d.metrics.MessageReceived(msg.Command)
		return d.handleServerInfo(msg)
	case protocol.CmdCheckPatches:
		d.metrics.MessageReceived(msg.Command)
		d.logger.Debug().Msg("patch check acknowledged")
		return Outcome{Command: msg.Command}
	case protocol.CmdDeleteFiles:
		d.metrics.MessageReceived(msg.Command)
		return d.handleDeleteFiles(msg)
	case protocol.CmdUpdateFiles:
		d.metrics.MessageReceived(msg.Command)
		return d.handleUpdateFiles(msg)
	default:
		d.logger.Trace().Str("command", msg.Command).Msg("ignoring unknown command")
		d.metrics.MessageDropped(metrics.ReasonUnknown)
		return Outcome{Command: msg.Command, Dropped: true}
	}
}

func (d *Dispatcher) handleServerInfo(msg *protocol.Message) Outcome {
	info, err := protocol.ParseServerInfo(msg)
	if err != nil {
		d.logger.Warn().Err(err).Msg("dropping server info")
		d.metrics.MessageDropped(metrics.ReasonParse)
		return Outcome{Command: msg.Command, Dropped: true}
	}

	d.store.Replace(state.ServerProfile{
		IP:        info.IP,
		Port:      info.Port,
		Name:      info.Name,
		Notice:    info.Notice,
		Connected: true,
	})

	d.logger.Info().
		Str("ip", info.IP).
		Str("port", info.Port).
		Str("name", info.Name).
		Msg("server info updated")
	return Outcome{Command: msg.Command}
}

func (d *Dispatcher) handleDeleteFiles(msg *protocol.Message) Outcome {
	out := Outcome{Command: msg.Command}
	for _, name := range protocol.ParseDeleteFiles(msg) {
		if err := d.files.Delete(name); err != nil {
			// Best effort, the rest of the batch still runs
			d.logger.Warn().Err(err).Str("file", name).Msg("delete failed")
			continue
		}
		d.metrics.FileDeleted()
		out.Deleted = append(out.Deleted, name)
	}
	return out
}

func (d *Dispatcher) handleUpdateFiles(msg *protocol.Message) Outcome {
	upd, err := protocol.ParseUpdateFile(msg)
	if err != nil {
		reason := metrics.ReasonParse
		if errors.Is(err, protocol.ErrSizeMismatch) {
			reason = metrics.ReasonIntegrity
		}
		d.logger.Warn().Err(err).Str("file", msg.Field(0)).Msg("rejecting file update")
		d.metrics.MessageDropped(reason)
		return Outcome{Command: msg.Command, Dropped: true, Rejected: msg.Field(0)}
	}

	if err := d.files.Write(upd.Filename, upd.Content); err != nil {
		if errors.Is(err, filesync.ErrUnsafePath) {
			d.logger.Warn().Err(err).Str("file", upd.Filename).Msg("rejecting file update")
			d.metrics.MessageDropped(metrics.ReasonParse)
			return Outcome{Command: msg.Command, Dropped: true, Rejected: upd.Filename}
		}
		d.logger.Error().Err(err).Str("file", upd.Filename).Msg("file update failed")
		return Outcome{Command: msg.Command, Rejected: upd.Filename, Err: err}
	}

	d.metrics.FileWritten(len(upd.Content))
	return Outcome{Command: msg.Command, Updated: upd.Filename}
}
