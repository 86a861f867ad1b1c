package logging

import "time"

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Domain helpers

func Component(name string) Field { return String("component", name) }

func RunID(id string) Field { return String("run_id", id) }

func DeviceID(id string) Field { return String("device_id", id) }

func Step(n int) Field { return Int("step", n) }

func TopologyKind(kind string) Field { return String("topology", kind) }

func Count(n int) Field { return Int("count", n) }

func Elapsed(d time.Duration) Field { return Duration("elapsed", d) }
