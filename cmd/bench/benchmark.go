package bench

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ValentinKolb/msgt/transport"
	"github.com/ValentinKolb/msgt/transport/common"
	gometrics "github.com/rcrowley/go-metrics"
)

var (
	ErrTimeout      = errors.New("timed out waiting for the server")
	ErrDisconnected = errors.New("disconnected from the server")
	ErrNotEchoed    = errors.New("server answered with different data")
)

// pollInterval is the sleep between two polls of the client's queue
const pollInterval = 20 * time.Microsecond

// result of a single test
type result struct {
	Test     string
	Messages int64
	Mean     time.Duration
	P50      time.Duration
	P95      time.Duration
	P99      time.Duration
	Max      time.Duration
	MsgRate  float64 // messages per second
	ByteRate float64 // bytes per second (both directions)
}

// benchmark runs the tests with one connected client
type benchmark struct {
	client  transport.IClientTransport
	payload []byte
	timeout time.Duration
}

func newBenchmark(client transport.IClientTransport, size int, timeout time.Duration) *benchmark {
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i)
	}
	return &benchmark{client: client, payload: payload, timeout: timeout}
}

// waitConnected waits for the Connected event of the client
func (b *benchmark) waitConnected() error {
	msg, err := b.next()
	if err != nil {
		return err
	}
	if msg.EventType != common.Connected {
		return ErrDisconnected
	}
	return nil
}

// roundTrip sends one message at a time and waits for its echo
func (b *benchmark) roundTrip(messages int) (result, error) {
	timer := gometrics.NewTimer()
	defer timer.Stop()
	meter := gometrics.NewMeter()
	defer meter.Stop()

	for i := 0; i < messages; i++ {
		start := time.Now()
		if !b.client.Send(b.payload) {
			return result{}, ErrDisconnected
		}
		if err := b.expectEcho(); err != nil {
			return result{}, err
		}
		timer.UpdateSince(start)
		meter.Mark(1)
	}

	return newResult("round-trip", timer.Snapshot(), meter.Snapshot(), len(b.payload)), nil
}

// throughput keeps up to burst messages in flight. The timer measures the time for a
// whole burst, the meter counts messages.
func (b *benchmark) throughput(messages, burst int) (result, error) {
	timer := gometrics.NewTimer()
	defer timer.Stop()
	meter := gometrics.NewMeter()
	defer meter.Stop()

	for sent := 0; sent < messages; sent += burst {
		n := min(burst, messages-sent)

		start := time.Now()
		for i := 0; i < n; i++ {
			if !b.client.Send(b.payload) {
				return result{}, ErrDisconnected
			}
		}
		for i := 0; i < n; i++ {
			if err := b.expectEcho(); err != nil {
				return result{}, err
			}
		}
		timer.UpdateSince(start)
		meter.Mark(int64(n))
	}

	return newResult("throughput", timer.Snapshot(), meter.Snapshot(), len(b.payload)), nil
}

// expectEcho waits for the next event and checks that it echoes the payload
func (b *benchmark) expectEcho() error {
	msg, err := b.next()
	if err != nil {
		return err
	}
	if msg.EventType != common.Data {
		return ErrDisconnected
	}
	if !bytes.Equal(msg.Data, b.payload) {
		return ErrNotEchoed
	}
	return nil
}

// next polls the client until an event arrives or the timeout expires
func (b *benchmark) next() (common.Message, error) {
	deadline := time.Now().Add(b.timeout)
	for {
		if msg, ok := b.client.GetNextMessage(); ok {
			return msg, nil
		}
		if time.Now().After(deadline) {
			return common.Message{}, ErrTimeout
		}
		time.Sleep(pollInterval)
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func newResult(test string, timer gometrics.Timer, meter gometrics.Meter, size int) result {
	ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})
	return result{
		Test:     test,
		Messages: meter.Count(),
		Mean:     time.Duration(timer.Mean()),
		P50:      time.Duration(ps[0]),
		P95:      time.Duration(ps[1]),
		P99:      time.Duration(ps[2]),
		Max:      time.Duration(timer.Max()),
		MsgRate:  meter.RateMean(),
		ByteRate: meter.RateMean() * float64(2*(size+4)),
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(r result) {
	fmt.Printf("%-12s%d msgs\tmean %s\tp50 %s\tp95 %s\tp99 %s\tmax %s\t%.0f msgs/sec\t%.2f MB/sec\n",
		r.Test, r.Messages, r.Mean, r.P50, r.P95, r.P99, r.Max, r.MsgRate, r.ByteRate/1e6)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []result) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Test", "Messages", "MeanNs", "P50Ns", "P95Ns", "P99Ns", "MaxNs", "MsgsPerSec", "BytesPerSec",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range results {
		row := []string{
			r.Test,
			strconv.FormatInt(r.Messages, 10),
			strconv.FormatInt(r.Mean.Nanoseconds(), 10),
			strconv.FormatInt(r.P50.Nanoseconds(), 10),
			strconv.FormatInt(r.P95.Nanoseconds(), 10),
			strconv.FormatInt(r.P99.Nanoseconds(), 10),
			strconv.FormatInt(r.Max.Nanoseconds(), 10),
			fmt.Sprintf("%.0f", r.MsgRate),
			fmt.Sprintf("%.0f", r.ByteRate),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %w", r.Test, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
