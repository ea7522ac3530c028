package seeding

import (
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Student is one synthetic record.
type Student struct {
	ID             int64
	Name           string
	Age            int
	Grade          int
	City           string
	EnrollmentDate string
}

const (
	MinAge   = 18
	MaxAge   = 25
	MinGrade = 50
	MaxGrade = 100

	enrollmentWindow = 2 * 365 * 24 * time.Hour
)

// Generator produces independent student records. The same seed yields the
// same sequence for the same clock.
type Generator struct {
	rnd   *rand.Rand
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewGenerator returns a generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rnd:   rand.New(rand.NewSource(seed)),
		faker: gofakeit.New(uint64(seed)),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used for enrollment dates.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Next returns a fresh record. ID is left zero for the database to assign.
func (g *Generator) Next() Student {
	today := g.now().Truncate(24 * time.Hour)
	back := time.Duration(g.rnd.Int63n(int64(enrollmentWindow/(24*time.Hour))+1)) * 24 * time.Hour

	return Student{
		Name:           g.faker.Name(),
		Age:            MinAge + g.rnd.Intn(MaxAge-MinAge+1),
		Grade:          MinGrade + g.rnd.Intn(MaxGrade-MinGrade+1),
		City:           g.faker.City(),
		EnrollmentDate: today.Add(-back).Format(time.DateOnly),
	}
}

func defaultSeed() int64 { return time.Now().UnixNano() }
