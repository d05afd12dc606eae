package services

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"

	"github.com/google/uuid"
)

const (
	// serverSeedBytes is the seed size: 256 bits
	serverSeedBytes = 32

	// maxDerivationRounds bounds the HMAC counter; 5 distinct values out of 39 need far fewer
	maxDerivationRounds = 1000
)

// lotteryRNGService implements the commit-reveal derivation
type lotteryRNGService struct {
	entropy io.Reader
}

// NewLotteryRNGService creates an RNG service reading seeds from crypto/rand
func NewLotteryRNGService() interfaces.LotteryRNGService {
	return &lotteryRNGService{entropy: rand.Reader}
}

// GenerateServerSeed returns a fresh 256-bit seed as lowercase hex
func (s *lotteryRNGService) GenerateServerSeed() (string, error) {
	buf := make([]byte, serverSeedBytes)
	if _, err := io.ReadFull(s.entropy, buf); err != nil {
		return "", fmt.Errorf("failed to generate server seed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ComputeSeedHash returns hex(SHA-256(seed bytes))
func (s *lotteryRNGService) ComputeSeedHash(serverSeed string) (string, error) {
	key, err := decodeSeed(serverSeed)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:]), nil
}

// DeriveInput returns the draw id as lowercase hex without dashes
func (s *lotteryRNGService) DeriveInput(drawID uuid.UUID) string {
	return entities.DrawInputFor(drawID)
}

// DeriveWinningNumbers runs HMAC-SHA256(seed, input:counter) for counter 0,1,2,... mapping the
// leading 4 bytes of each digest into the format's range and keeping the first distinct values.
func (s *lotteryRNGService) DeriveWinningNumbers(serverSeed, derivedInput string, format entities.NumberFormat) (entities.LotteryNumbers, error) {
	key, err := decodeSeed(serverSeed)
	if err != nil {
		return entities.LotteryNumbers{}, err
	}

	span := int64(format.Max - format.Min + 1)
	if format.Count <= 0 || span < int64(format.Count) {
		return entities.LotteryNumbers{}, entities.ErrDrawResultInvalid.WithMessage("number format %+v cannot produce a result", format)
	}

	picked := make([]int, 0, format.Count)
	seen := make(map[int]struct{}, format.Count)

	for counter := 0; len(picked) < format.Count && counter < maxDerivationRounds; counter++ {
		mac := hmac.New(sha256.New, key)
		mac.Write([]byte(derivedInput + ":" + strconv.Itoa(counter)))
		digest := mac.Sum(nil)

		value := int64(int32(binary.BigEndian.Uint32(digest[:4])))
		if value < 0 {
			value = -value
		}
		n := int(value%span) + format.Min

		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		picked = append(picked, n)
	}

	if len(picked) < format.Count {
		return entities.LotteryNumbers{}, entities.ErrDrawResultInvalid.WithMessage("only %d distinct numbers after %d rounds", len(picked), maxDerivationRounds)
	}

	numbers, err := entities.NewLotteryNumbers(picked, format)
	if err != nil {
		return entities.LotteryNumbers{}, entities.ErrDrawResultInvalid.WithMessage("derived numbers failed validation: %v", err)
	}
	return numbers, nil
}

// Verify replays a published proof
func (s *lotteryRNGService) Verify(proof *entities.DrawVerification, format entities.NumberFormat) error {
	if proof.Algorithm != entities.AlgorithmHMACSHA256 {
		return entities.ErrDrawResultInvalid.WithMessage("unsupported algorithm %q", proof.Algorithm)
	}

	hash, err := s.ComputeSeedHash(proof.ServerSeed)
	if err != nil {
		return err
	}
	if !strings.EqualFold(hash, proof.ServerSeedHash) {
		return entities.ErrDrawSeedMismatch
	}

	derived, err := s.DeriveWinningNumbers(proof.ServerSeed, proof.DerivedInput, format)
	if err != nil {
		return err
	}
	published, err := entities.NewLotteryNumbers(proof.WinningNumbers, format)
	if err != nil {
		return entities.ErrDrawResultInvalid.WithMessage("published numbers are invalid: %v", err)
	}
	if derived.String() != published.String() {
		return entities.ErrDrawResultInvalid.WithMessage("derived %s, published %s", derived, published)
	}
	return nil
}

func decodeSeed(serverSeed string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(serverSeed))
	if err != nil || len(key) == 0 {
		return nil, entities.ErrDrawSeedMismatch.WithMessage("server seed is not valid hex")
	}
	return key, nil
}
