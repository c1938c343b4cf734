// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"fmt"

	"github.com/ava-labs/dposledger/consts"
)

// VerifyUsername checks that [username] is 1 to [consts.MaxUsernameLen]
// characters of lowercase letters, digits and !@$&_.
func VerifyUsername(username string) error {
	if len(username) == 0 || len(username) > consts.MaxUsernameLen {
		return fmt.Errorf("%w: length %d", ErrInvalidUsername, len(username))
	}
	for i := 0; i < len(username); i++ {
		c := username[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '!' || c == '@' || c == '$' || c == '&' || c == '_' || c == '.':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidUsername, username)
		}
	}
	return nil
}
