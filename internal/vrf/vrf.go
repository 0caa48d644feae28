// Package vrf verifies the values delivered by the randomness oracle. The
// oracle signs ref || le64(requestID) || value with a Schnorr key on
// Ed25519; the game server only holds the public key.
package vrf

import (
	"crypto/cipher"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"degendecks/internal/domain"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/group/edwards25519"
	"go.dedis.ch/kyber/v4/sign/schnorr"
)

var suite = edwards25519.NewBlakeSHA256Ed25519()

// ErrNoPublicKey is returned when no oracle key is configured.
var ErrNoPublicKey = errors.New("oracle public key not configured")

// Message is the byte string the oracle signs for one delivery.
func Message(ref string, requestID uint64, value domain.Seed) []byte {
	msg := make([]byte, 0, len(ref)+8+len(value))
	msg = append(msg, ref...)
	msg = binary.LittleEndian.AppendUint64(msg, requestID)
	msg = append(msg, value[:]...)
	return msg
}

// Verifier checks oracle proofs against a fixed public key.
type Verifier struct {
	public kyber.Point
}

// NewVerifier decodes a hex encoded oracle public key.
func NewVerifier(publicHex string) (*Verifier, error) {
	if publicHex == "" {
		return nil, ErrNoPublicKey
	}
	raw, err := hex.DecodeString(publicHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode oracle public key: %w", err)
	}
	public := suite.Point()
	if err := public.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal oracle public key: %w", err)
	}
	return &Verifier{public: public}, nil
}

// Verify checks that proof is the oracle's signature over the delivery.
func (v *Verifier) Verify(ref string, requestID uint64, value domain.Seed, proof []byte) error {
	if v == nil || v.public == nil {
		return ErrNoPublicKey
	}
	return schnorr.Verify(suite, v.public, Message(ref, requestID, value), proof)
}

// Oracle is a signing oracle. Production deployments run it out of process;
// the simulator and tests run it in memory.
type Oracle struct {
	private kyber.Scalar
	public  kyber.Point
	stream  cipher.Stream
}

// NewOracle creates an oracle with a fresh key drawing values from the
// system random source.
func NewOracle() *Oracle {
	return newOracle(suite.RandomStream())
}

// NewDeterministicOracle derives key and values from seed so runs replay.
func NewDeterministicOracle(seed []byte) *Oracle {
	return newOracle(suite.XOF(seed))
}

func newOracle(stream cipher.Stream) *Oracle {
	private := suite.Scalar().Pick(stream)
	return &Oracle{
		private: private,
		public:  suite.Point().Mul(private, nil),
		stream:  stream,
	}
}

// PublicKeyHex returns the hex encoded public key for NewVerifier.
func (o *Oracle) PublicKeyHex() string {
	raw, err := o.public.MarshalBinary()
	if err != nil {
		return ""
	}
	return hex.EncodeToString(raw)
}

// Verifier returns a verifier bound to this oracle's key.
func (o *Oracle) Verifier() *Verifier {
	return &Verifier{public: o.public}
}

// Fulfill draws a value for the request and signs it.
func (o *Oracle) Fulfill(ref string, requestID uint64) (domain.Seed, []byte, error) {
	var value domain.Seed
	o.stream.XORKeyStream(value[:], value[:])
	proof, err := o.Sign(ref, requestID, value)
	return value, proof, err
}

// Sign signs an arbitrary value for the request.
func (o *Oracle) Sign(ref string, requestID uint64, value domain.Seed) ([]byte, error) {
	sig, err := schnorr.Sign(suite, o.private, Message(ref, requestID, value))
	if err != nil {
		return nil, fmt.Errorf("failed to sign randomness: %w", err)
	}
	return sig, nil
}
