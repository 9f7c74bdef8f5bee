package shell

import (
	"errors"
	"fmt"
)

// serverMessager is implemented by errors that carry the server's error text
type serverMessager interface {
	ServerMessage() string
}

// SaveFailedMessage renders "Save Failed: <msg>", preferring the server's message
func SaveFailedMessage(err error) string {
	var sm serverMessager
	if errors.As(err, &sm) && sm.ServerMessage() != "" {
		return fmt.Sprintf(msgSaveFailedFmt, sm.ServerMessage())
	}
	return fmt.Sprintf(msgSaveFailedFmt, err.Error())
}
