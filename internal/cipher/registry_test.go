package cipher

import (
	"context"
	"testing"
)

// mockOperation is a test implementation of Operation
type mockOperation struct {
	BaseOperation
}

func (m *mockOperation) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return input, nil
}

func mock(name string, typ OperationType) *mockOperation {
	return &mockOperation{BaseOperation: BaseOperation{NameValue: name, TypeValue: typ, DescriptionValue: name}}
}

// emptyRegistry clears the registry for one test and restores the builtins
// afterwards.
func emptyRegistry(t *testing.T) {
	t.Helper()
	ClearRegistry()
	t.Cleanup(func() {
		ClearRegistry()
		if err := RegisterBuiltins(); err != nil {
			t.Fatalf("restore builtins: %v", err)
		}
	})
}

func TestRegisterOperation(t *testing.T) {
	emptyRegistry(t)

	op := mock("mock", OperationTypeEncode)
	if err := RegisterOperation(op); err != nil {
		t.Fatalf("failed to register operation: %v", err)
	}
	if err := RegisterOperation(op); err == nil {
		t.Fatal("expected error when registering duplicate operation")
	}
	if err := RegisterOperation(nil); err == nil {
		t.Fatal("expected error when registering nil operation")
	}
	if err := RegisterOperation(mock("", OperationTypeEncode)); err == nil {
		t.Fatal("expected error when registering unnamed operation")
	}
}

func TestGetOperation(t *testing.T) {
	emptyRegistry(t)

	RegisterOperation(mock("test-op", OperationTypeEncode))

	retrieved, exists := GetOperation("test-op")
	if !exists {
		t.Fatal("operation should exist")
	}
	if retrieved.Name() != "test-op" {
		t.Errorf("expected name 'test-op', got '%s'", retrieved.Name())
	}

	UnregisterOperation("test-op")
	if _, exists := GetOperation("test-op"); exists {
		t.Fatal("operation should be gone after unregister")
	}
}

func TestListOperationsByType(t *testing.T) {
	emptyRegistry(t)

	RegisterOperation(mock("encode2", OperationTypeEncode))
	RegisterOperation(mock("decode1", OperationTypeDecode))
	RegisterOperation(mock("encode1", OperationTypeEncode))

	all := ListOperations()
	if len(all) != 3 || all[0].Name() != "decode1" || all[2].Name() != "encode2" {
		t.Errorf("operations should be sorted by name, got %v", names(all))
	}

	encoders := ListOperationsByType(OperationTypeEncode)
	if len(encoders) != 2 || encoders[0].Name() != "encode1" {
		t.Errorf("unexpected encoders %v", names(encoders))
	}
	if decoders := ListOperationsByType(OperationTypeDecode); len(decoders) != 1 {
		t.Errorf("expected 1 decoder, got %d", len(decoders))
	}
}

func TestBuiltinsRegistered(t *testing.T) {
	want := []string{
		"base64_decode", "base64_encode", "base64_to_hex",
		"break_repeating_key", "break_single_byte",
		"hex_decode", "hex_encode", "hex_to_base64",
		"xor_fixed", "xor_repeating",
	}
	got := names(ListOperations())
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if err := RegisterBuiltins(); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func names(ops []Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.Name()
	}
	return out
}
