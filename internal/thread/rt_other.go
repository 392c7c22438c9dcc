//go:build !linux

package thread

func acquireRealTime(RealTime) error {
	return ErrRealTimeUnsupported
}

func dropRealTime() error {
	return ErrRealTimeUnsupported
}
