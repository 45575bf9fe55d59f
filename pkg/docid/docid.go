package docid

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
)

var ErrInvalidDocID = errors.New("invalid doc id")

var (
	colors = []string{"cobalt", "emerald", "burgundy", "gray", "orange", "violet", "silver", "saffron", "crimson", "cyan"}
	cities = []string{"shanghai", "karachi", "bejing", "delhi", "lagos", "tianjin", "istanbul", "tokyo", "guangzhou", "mumbai", "moscow", "shenzhen", "jakarta", "cairo"}

	validPattern = regexp.MustCompile(`^[0-9a-fA-F-]+$`)
)

// Generator produces human readable ids such as "cobalt-shanghai-42". Collisions are
// not detected.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	color := colors[g.rnd.Intn(len(colors))]
	city := cities[g.rnd.Intn(len(cities))]
	return strings.Join([]string{color, city, fmt.Sprint(g.rnd.Intn(101))}, "-")
}

var defaultGenerator = NewGenerator(time.Now().UnixNano())

func Generate() string {
	return defaultGenerator.Generate()
}

// IsValid accepts externally supplied ids: hex digits and hyphens, longer than 4.
func IsValid(id string) bool {
	return len(id) > 4 && validPattern.MatchString(id)
}

func Validate(id string) error {
	if !IsValid(id) {
		return fmt.Errorf("%w: %q", ErrInvalidDocID, id)
	}
	return nil
}
