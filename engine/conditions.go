package engine

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
)

// Condition is one mental-imagery task: the instruction shown on screen and
// the sound played at block onset.
type Condition struct {
	Name        string
	Instruction string
	SoundFile   string
	MarkerLine  string
}

func DefaultConditions() []Condition {
	return []Condition{
		{Name: "tennis", Instruction: "imagine to play a game of tennis", SoundFile: "tennis.wav", MarkerLine: "1"},
		{Name: "house", Instruction: "imagine to visit all of the rooms of your house, starting from the front door", SoundFile: "room.wav", MarkerLine: "2"},
		{Name: "faces", Instruction: "don't think about faces", SoundFile: "faces.wav", MarkerLine: "3"},
	}
}

// LoadConditions reads name,instruction,sound[,line] rows. A first row whose
// first cell is "name" is treated as a header.
func LoadConditions(path string) ([]Condition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var conds []Condition
	for i, record := range records {
		if i == 0 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "name") {
			continue
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < 3 {
			return nil, fmt.Errorf("line %d: expected name,instruction,sound[,line], got %d fields", i+1, len(record))
		}

		c := Condition{
			Name:        strings.TrimSpace(record[0]),
			Instruction: strings.TrimSpace(record[1]),
			SoundFile:   strings.TrimSpace(record[2]),
		}
		if c.Name == "" {
			return nil, fmt.Errorf("line %d: empty condition name", i+1)
		}
		if len(record) > 3 {
			c.MarkerLine = strings.TrimSpace(record[3])
			if c.MarkerLine != "" && !isMarkerLine(c.MarkerLine) {
				return nil, fmt.Errorf("line %d: marker line must be 1-8, got %q", i+1, c.MarkerLine)
			}
		}
		conds = append(conds, c)
	}

	if len(conds) == 0 {
		return nil, fmt.Errorf("%s: no conditions", path)
	}
	return conds, nil
}

// BuildBlockOrder repeats every condition the given number of times and
// shuffles the result.
func BuildBlockOrder(conds []Condition, repeats int, rng *rand.Rand) []Condition {
	if repeats <= 0 || len(conds) == 0 {
		return nil
	}
	order := make([]Condition, 0, len(conds)*repeats)
	for i := 0; i < repeats; i++ {
		order = append(order, conds...)
	}
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}

// NewRand returns a generator for the block order. A zero seed picks a random
// one; the seed actually used is returned so it can be logged.
func NewRand(seed uint64) (*rand.Rand, uint64) {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), seed
}

func OrderNames(order []Condition) []string {
	names := make([]string, len(order))
	for i, c := range order {
		names[i] = c.Name
	}
	return names
}

func isMarkerLine(s string) bool {
	return len(s) == 1 && s[0] >= '1' && s[0] <= '8'
}
