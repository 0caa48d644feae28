package domain

import (
	"encoding/binary"

	"github.com/google/uuid"
)

const gameRefSalt = "GAME"

var gameNamespace = uuid.MustParse("6f1c2a7e-4d0b-5c1e-9a57-3e0f8d9b2c44")

// GameRef derives the stable key of a game from its creator and seed.
// Distinct creators never share a ref; a creator reusing a seed gets the same one.
func GameRef(owner string, seed uint64) string {
	buf := make([]byte, 0, len(gameRefSalt)+8+len(owner))
	buf = append(buf, gameRefSalt...)
	buf = binary.LittleEndian.AppendUint64(buf, seed)
	buf = append(buf, owner...)
	return uuid.NewSHA1(gameNamespace, buf).String()
}
