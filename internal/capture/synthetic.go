package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	json "github.com/goccy/go-json"

	"github.com/sentryflow-systems/sentryflow-agent/internal/metrics"
)

// processEvent mimics the shape of a decoded kernel process event.
type processEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Hostname  string    `json:"hostname"`
	User      string    `json:"user"`
	PID       int       `json:"pid"`
	PPID      int       `json:"ppid"`
	Exe       string    `json:"exe"`
	Cmdline   string    `json:"cmdline"`
	Action    string    `json:"action"`
}

// fileEvent mimics the shape of a decoded kernel file event.
type fileEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Hostname  string    `json:"hostname"`
	User      string    `json:"user"`
	PID       int       `json:"pid"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
}

var processActions = []string{"exec", "fork", "exit", "setuid"}

var fileOperations = []string{"open", "write", "unlink", "rename", "chmod"}

// SyntheticSource generates fake process and file events at a fixed rate.
// It stands in for the kernel capture layer during load tests and local
// runs.
type SyntheticSource struct {
	hostname string
	rate     time.Duration

	events    chan []byte
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewSyntheticSource starts generating one event per rate for hostname.
func NewSyntheticSource(hostname string, rate time.Duration) *SyntheticSource {
	if rate <= 0 {
		rate = 100 * time.Millisecond
	}
	s := &SyntheticSource{
		hostname: hostname,
		rate:     rate,
		events:   make(chan []byte, 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *SyntheticSource) Events() <-chan []byte { return s.events }

// Close stops generation and closes the event channel.
func (s *SyntheticSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}

func (s *SyntheticSource) run() {
	defer close(s.done)
	defer close(s.events)

	ticker := time.NewTicker(s.rate)
	defer ticker.Stop()

	faker := gofakeit.New(time.Now().UnixNano())

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			rec, err := s.generate(faker)
			if err != nil {
				continue
			}
			select {
			case s.events <- rec:
				metrics.EventsGenerated.Inc()
			case <-s.stop:
				return
			default:
				// Consumer is behind; skip rather than block generation.
			}
		}
	}
}

func (s *SyntheticSource) generate(faker *gofakeit.Faker) ([]byte, error) {
	now := time.Now().UTC()

	if faker.Bool() {
		return json.Marshal(processEvent{
			Timestamp: now,
			Hostname:  s.hostname,
			User:      faker.Username(),
			PID:       faker.Number(100, 65535),
			PPID:      faker.Number(1, 99),
			Exe:       fmt.Sprintf("/usr/bin/%s", faker.Word()),
			Cmdline:   fmt.Sprintf("%s --%s", faker.Word(), faker.Word()),
			Action:    processActions[faker.Number(0, len(processActions)-1)],
		})
	}
	return json.Marshal(fileEvent{
		Timestamp: now,
		Hostname:  s.hostname,
		User:      faker.Username(),
		PID:       faker.Number(100, 65535),
		Path:      fmt.Sprintf("/var/tmp/%s/%s", faker.Word(), faker.Word()),
		Operation: fileOperations[faker.Number(0, len(fileOperations)-1)],
	})
}
