// Package cipher exposes the codec, XOR and breaker primitives as named
// operations that can be chained into pipelines and saved as recipes.
//
// # Operations
//
// Every operation is registered at init under a stable name:
//
//	hex_encode, hex_decode, base64_encode, base64_decode,
//	hex_to_base64, base64_to_hex, xor_repeating, xor_fixed,
//	break_single_byte, break_repeating_key
//
//	op, _ := cipher.GetOperation("xor_repeating")
//	ct, _ := op.Execute(ctx, []byte("attack at dawn"), map[string]interface{}{"key": "ICE"})
//
// Encoding operations reverse into their decoding twin and the XOR
// operations reverse into themselves. The break operations are one-way.
//
// # Pipelines
//
//	p, _ := cipher.ParsePipeline("xor_repeating,hex_encode", map[string]interface{}{"key": "ICE"})
//	encoded, _ := p.Execute(ctx, []byte("Burning 'em"))
//	back, _ := p.Reverse()
//	plain, _ := back.Execute(ctx, encoded)
//
// # Detection
//
// SmartDetector tells hex ciphertext from base64 ciphertext. When text is
// valid in both encodings hex is preferred, matching codec.Sniff.
//
// # Recipes
//
// RecipeManager persists pipelines as JSON files named after the recipe.
// Each recipe gets a ULID on first save.
package cipher
