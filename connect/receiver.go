package connect

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// receiver exposes the client methods the hub invokes. The signalr client
// finds them by name through reflection, so the method set must stay
// limited to hub callbacks.
type receiver struct {
	s *Session
}

// SendSignal is invoked as SendSignal(signal, user).
func (r *receiver) SendSignal(signal, user string) {
	r.s.dispatch(EventSignal, signal, user)
}

func (r *receiver) NewUserArrived(username string) {
	r.s.dispatch(EventUserJoined, username)
}

func (r *receiver) UserLeft(username string) {
	r.s.dispatch(EventUserLeft, username)
}

// logAdapter feeds the signalr key/value logger into logrus.
type logAdapter struct {
	log *logrus.Entry
}

func (a *logAdapter) Log(keyVals ...interface{}) error {
	fields := logrus.Fields{}
	msg := "signalr"
	level := logrus.DebugLevel
	for i := 0; i+1 < len(keyVals); i += 2 {
		key := fmt.Sprint(keyVals[i])
		val := keyVals[i+1]
		switch key {
		case "message", "msg":
			msg = fmt.Sprint(val)
		case "level":
			if fmt.Sprint(val) == "error" {
				level = logrus.WarnLevel
			}
		case "ts", "caller":
		default:
			fields[key] = val
		}
	}
	a.log.WithFields(fields).Log(level, msg)
	return nil
}
