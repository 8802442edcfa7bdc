// Operations are looked up by name and chained into pipelines:
//
//	pipeline := &cipher.Pipeline{
//	    Operations: []cipher.OperationConfig{
//	        {Name: "xor_repeating", Parameters: map[string]interface{}{"key": "ICE"}},
//	        {Name: "hex_encode"},
//	    },
//	    Reversible: true,
//	}
//	encoded, _ := pipeline.Execute(ctx, []byte("Burning 'em"))
//	reversed, _ := pipeline.Reverse()
//	plain, _ := reversed.Execute(ctx, encoded)
//
// Built-in operations:
//
//	hex_encode / hex_decode         hexadecimal codec
//	base64_encode / base64_decode   standard Base64, wrapped lines joined
//	xor_single                      one-byte key (param key, 0..255)
//	xor_repeating                   cycled key (param key)
//	fixed_xor                       hex XOR hex (param with)
//	xor_crack_single                recover single-byte XOR plaintext
//	xor_crack_repeating             recover repeating-key XOR plaintext
//
// The XOR operations are their own inverse.
//
// # Input decoding
//
// Decoder maps an encoding name (hex, base64, raw, auto) to the decode
// function the cracking entry points take. Every decode failure wraps
// xorcrack.ErrDecode. With auto, SmartDetector picks the encoding per input.
package cipher
