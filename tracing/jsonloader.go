package tracing

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode"
)

// Import reads instructions in JSON from r and writes them to w. The input can
// either be a JSON array of instructions or a stream of instruction objects.
// It returns the number of instructions written. The writer is flushed at the
// end.
func Import(r io.Reader, w TraceWriter) (int, error) {
	count := 0

	err := decodeInstructions(r, func(inst *Instruction) error {
		err := w.Write(inst)
		if err != nil {
			return err
		}

		count++

		return nil
	})
	if err != nil {
		return count, err
	}

	return count, w.Flush()
}

// ReadInstructions loads all the instructions from a JSON input, in the
// formats accepted by Import.
func ReadInstructions(r io.Reader) ([]*Instruction, error) {
	insts := []*Instruction{}

	err := decodeInstructions(r, func(inst *Instruction) error {
		insts = append(insts, inst)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return insts, nil
}

func decodeInstructions(r io.Reader, handle func(*Instruction) error) error {
	br := bufio.NewReader(r)

	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil
	}

	if err != nil {
		return err
	}

	dec := json.NewDecoder(br)

	if first == '[' {
		return decodeArray(dec, handle)
	}

	return decodeStream(dec, handle)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}

		if !unicode.IsSpace(rune(b[0])) {
			return b[0], nil
		}

		_, err = br.ReadByte()
		if err != nil {
			return 0, err
		}
	}
}

func decodeArray(dec *json.Decoder, handle func(*Instruction) error) error {
	_, err := dec.Token()
	if err != nil {
		return err
	}

	index := 0
	for dec.More() {
		inst := &Instruction{}

		err = dec.Decode(inst)
		if err != nil {
			return fmt.Errorf("instruction %d: %w", index, err)
		}

		err = handle(inst)
		if err != nil {
			return err
		}

		index++
	}

	_, err = dec.Token()

	return err
}

func decodeStream(dec *json.Decoder, handle func(*Instruction) error) error {
	for index := 0; ; index++ {
		inst := &Instruction{}

		err := dec.Decode(inst)
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("instruction %d: %w", index, err)
		}

		err = handle(inst)
		if err != nil {
			return err
		}
	}
}
