package utils

import "io"

type flusher interface {
	Flush() error
}

type flushingWriter struct {
	destination io.Writer
	flusher     flusher
}

// NewFlushingWriter wraps the destination so every write is followed by a flush when the destination supports it.
func NewFlushingWriter(destination io.Writer) io.Writer {
	if destination == nil {
		return io.Discard
	}
	writer := flushingWriter{destination: destination}
	if flushableDestination, supportsFlush := destination.(flusher); supportsFlush {
		writer.flusher = flushableDestination
	}
	return writer
}

func (writer flushingWriter) Write(data []byte) (int, error) {
	bytesWritten, writeError := writer.destination.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}
	if writer.flusher == nil {
		return bytesWritten, nil
	}
	return bytesWritten, writer.flusher.Flush()
}
