package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Magic bytes opening every object file: "MJ".
var Magic = []byte{'M', 'J'}

// HeaderSize is the size of the fixed object file header.
//
//	[magic:2] [code_len:4] [data_size:4] [main_pc:4]
const HeaderSize = 14

var (
	// ErrBadMagic is returned when an object file does not start with "MJ".
	ErrBadMagic = errors.New("bytecode: invalid object magic")

	// ErrTruncated is returned when an object file is shorter than its header declares.
	ErrTruncated = errors.New("bytecode: truncated object file")
)

// Object is a compiled program as stored on disk.
type Object struct {
	Code     []byte // Instruction stream
	DataSize int    // Number of global variable slots
	MainPC   int    // Entry address of main
}

// Header encodes the 14-byte object header.
func (o *Object) Header() []byte {
	buf := make([]byte, 0, HeaderSize)
	buf = append(buf, Magic...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(o.Code)))
	buf = binary.BigEndian.AppendUint32(buf, uint32(o.DataSize))
	buf = binary.BigEndian.AppendUint32(buf, uint32(o.MainPC))
	return buf
}

// WriteTo writes the header followed by the instruction stream.
func (o *Object) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(o.Header())
	total := int64(n)
	if err != nil {
		return total, fmt.Errorf("write object header: %w", err)
	}
	n, err = w.Write(o.Code)
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("write object code: %w", err)
	}
	return total, nil
}

// WriteTo finalizes the buffer into object format and writes it to w.
func (c *Code) WriteTo(w io.Writer) (int64, error) {
	return c.Object().WriteTo(w)
}

// WriteFile writes the object to path. The file is closed exactly once,
// and a close failure is reported when the write itself succeeded.
func WriteFile(path string, o *Object) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("cannot close %s: %w", path, cerr)
		}
	}()

	if _, err = o.WriteTo(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ReadObject decodes an object file.
func ReadObject(r io.Reader) (*Object, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: need %d header bytes", ErrTruncated, HeaderSize)
		}
		return nil, err
	}
	if header[0] != Magic[0] || header[1] != Magic[1] {
		return nil, fmt.Errorf("%w: got %q", ErrBadMagic, header[0:2])
	}

	codeLen := binary.BigEndian.Uint32(header[2:])
	o := &Object{
		DataSize: int(binary.BigEndian.Uint32(header[6:])),
		MainPC:   int(binary.BigEndian.Uint32(header[10:])),
	}
	if codeLen > MaxCodeSize {
		return nil, fmt.Errorf("bytecode: code length %d exceeds %d", codeLen, MaxCodeSize)
	}

	o.Code = make([]byte, codeLen)
	if _, err := io.ReadFull(r, o.Code); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: need %d code bytes", ErrTruncated, codeLen)
		}
		return nil, err
	}
	return o, nil
}

// ReadFile decodes the object file at path.
func ReadFile(path string) (*Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadObject(f)
}
