package interpreter

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"hash"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"

	"vybe/interpreter-go/pkg/runtime"
)

func init() {
	registerBuiltins(map[string]builtinFunc{
		"md5.create":           hasherFactory("MD5"),
		"sha1.create":          hasherFactory("SHA1"),
		"sha256.create":        hasherFactory("SHA256"),
		"sha384.create":        hasherFactory("SHA384"),
		"sha512.create":        hasherFactory("SHA512"),
		"hashalgorithm.create": builtinHashAlgorithmCreate,
		"md5.hashdata":         hashData("MD5"),
		"sha1.hashdata":        hashData("SHA1"),
		"sha256.hashdata":      hashData("SHA256"),
		"sha384.hashdata":      hashData("SHA384"),
		"sha512.hashdata":      hashData("SHA512"),

		"hashalgorithmname.md5":          constant(str("MD5")),
		"hashalgorithmname.sha1":         constant(str("SHA1")),
		"hashalgorithmname.sha256":       constant(str("SHA256")),
		"hashalgorithmname.sha384":       constant(str("SHA384")),
		"hashalgorithmname.sha512":       constant(str("SHA512")),
		"rfc2898derivebytes.pbkdf2":      builtinPbkdf2,
		"randomnumbergenerator.getbytes": builtinRandomBytes,

		"guid.newguid":             builtinNewGuid,
		"guid.empty":               constant(str(uuid.Nil.String())),
		"guid.parse":               builtinGuidParse,
		"guid.tryparse":            tryParse(builtinGuidParse, str(uuid.Nil.String())),
		"convert.tobase64string":   builtinToBase64,
		"convert.frombase64string": builtinFromBase64,
		"convert.tohexstring":      builtinToHex,
		"convert.fromhexstring":    builtinFromHex,
		"bitconverter.tostring":    builtinBitConverterToString,
	})
}

// hashConstructors maps .NET algorithm names, including the Managed and
// CryptoServiceProvider class names, to Go hashes.
var hashConstructors = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

func hashKey(name string) string {
	key := strings.ToLower(name)
	for _, suffix := range []string{"managed", "cryptoserviceprovider", "cng"} {
		key = strings.TrimSuffix(key, suffix)
	}
	return key
}

// bytesOf reads a Byte() array, or the UTF-8 bytes of a string.
func bytesOf(v runtime.Value) ([]byte, error) {
	switch val := v.(type) {
	case runtime.StringValue:
		return []byte(val.Val), nil
	case *runtime.ArrayValue:
		out := make([]byte, len(val.Elements))
		for idx, el := range val.Elements {
			b, err := runtime.AsByte(el)
			if err != nil {
				return nil, err
			}
			out[idx] = b
		}
		return out, nil
	case nil, runtime.NothingValue:
		return nil, runtime.Exception("ArgumentNullException", "Value cannot be null.\nParameter name: buffer")
	}
	return nil, runtime.TypeMismatch("Byte()", runtime.TypeName(v))
}

func byteArray(b []byte) *runtime.ArrayValue {
	out := make([]runtime.Value, len(b))
	for idx, c := range b {
		out[idx] = runtime.ByteValue{Val: c}
	}
	return runtime.NewArray(out)
}

// hasher is the native side of a HashAlgorithm object.
type hasher struct {
	name string
	new  func() hash.Hash
}

func (h hasher) callMethod(_ *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "computehash":
		if err := arity("ComputeHash", args, 1, 3); err != nil {
			return nil, true, err
		}
		data, err := bytesOf(args[0])
		if err != nil {
			return nil, true, err
		}
		if len(args) == 3 {
			offset, err := argInt(args, 1)
			if err != nil {
				return nil, true, err
			}
			count, err := argInt(args, 2)
			if err != nil {
				return nil, true, err
			}
			if offset < 0 || count < 0 || offset+count > len(data) {
				return nil, true, outOfRange("offset")
			}
			data = data[offset : offset+count]
		}
		sum := h.new()
		sum.Write(data)
		return byteArray(sum.Sum(nil)), true, nil
	case "hashsize":
		return runtime.IntegerValue{Val: int32(h.new().Size() * 8)}, true, nil
	case "clear", "dispose", "initialize":
		return runtime.Nothing, true, nil
	}
	return nil, false, nil
}

func newHasher(name string) (*runtime.ObjectValue, error) {
	fn, ok := hashConstructors[hashKey(name)]
	if !ok {
		return nil, runtime.Exception("CryptographicException", "Unknown hash algorithm '"+name+"'.")
	}
	obj := runtime.NewObject(name)
	obj.Native = hasher{name: name, new: fn}
	return obj, nil
}

func hasherFactory(name string) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name+".Create", args, 0, 1); err != nil {
			return nil, err
		}
		return newHasher(name)
	}
}

func builtinHashAlgorithmCreate(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("HashAlgorithm.Create", args, 0, 1); err != nil {
		return nil, err
	}
	name := "SHA1"
	if len(args) == 1 {
		name = argString(args, 0)
	}
	return newHasher(name)
}

func hashData(name string) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name+".HashData", args, 1, 1); err != nil {
			return nil, err
		}
		data, err := bytesOf(args[0])
		if err != nil {
			return nil, err
		}
		sum := hashConstructors[hashKey(name)]()
		sum.Write(data)
		return byteArray(sum.Sum(nil)), nil
	}
}

// deriveBytes backs Rfc2898DeriveBytes. Successive GetBytes calls continue
// the same key stream.
type deriveBytes struct {
	password   []byte
	salt       []byte
	iterations int
	hash       func() hash.Hash
	offset     int
}

func (d *deriveBytes) callMethod(_ *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "getbytes":
		if err := arity("GetBytes", args, 1, 1); err != nil {
			return nil, true, err
		}
		n, err := argInt(args, 0)
		if err != nil {
			return nil, true, err
		}
		if n <= 0 {
			return nil, true, outOfRange("cb")
		}
		stream := pbkdf2.Key(d.password, d.salt, d.iterations, d.offset+n, d.hash)
		out := stream[d.offset:]
		d.offset += n
		return byteArray(out), true, nil
	case "reset":
		d.offset = 0
		return runtime.Nothing, true, nil
	case "salt":
		return byteArray(d.salt), true, nil
	case "iterationcount":
		return runtime.IntegerValue{Val: int32(d.iterations)}, true, nil
	case "dispose":
		return runtime.Nothing, true, nil
	}
	return nil, false, nil
}

// newDeriveBytes implements New Rfc2898DeriveBytes(password, salt
// [, iterations [, hashAlgorithm]]). An integer salt asks for that many
// random salt bytes.
func newDeriveBytes(args []runtime.Value) (*runtime.ObjectValue, error) {
	if err := arity("Rfc2898DeriveBytes", args, 2, 4); err != nil {
		return nil, err
	}
	password, err := bytesOf(args[0])
	if err != nil {
		return nil, err
	}
	var salt []byte
	if runtime.IsNumeric(args[1]) {
		n, err := argInt(args, 1)
		if err != nil {
			return nil, err
		}
		if n < 8 {
			return nil, runtime.Exception("ArgumentException", "Salt is not at least eight bytes.")
		}
		salt = make([]byte, n)
		if _, err := rand.Read(salt); err != nil {
			return nil, runtime.Exception("CryptographicException", err.Error())
		}
	} else if salt, err = bytesOf(args[1]); err != nil {
		return nil, err
	}
	iterations, err := optInt(args, 2, 1000)
	if err != nil {
		return nil, err
	}
	if iterations <= 0 {
		return nil, outOfRange("iterations")
	}
	algorithm := "SHA1"
	if len(args) == 4 {
		algorithm = argString(args, 3)
	}
	fn, ok := hashConstructors[hashKey(algorithm)]
	if !ok {
		return nil, runtime.Exception("CryptographicException", "Unknown hash algorithm '"+algorithm+"'.")
	}
	obj := runtime.NewObject("Rfc2898DeriveBytes")
	obj.Native = &deriveBytes{password: password, salt: salt, iterations: iterations, hash: fn}
	return obj, nil
}

// builtinPbkdf2 is the static Rfc2898DeriveBytes.Pbkdf2(password, salt,
// iterations, hashAlgorithm, length).
func builtinPbkdf2(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Rfc2898DeriveBytes.Pbkdf2", args, 5, 5); err != nil {
		return nil, err
	}
	obj, err := newDeriveBytes(args[:4])
	if err != nil {
		return nil, err
	}
	val, _, err := obj.Native.(*deriveBytes).callMethod(nil, obj, "GetBytes", args[4:])
	return val, err
}

func builtinRandomBytes(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("RandomNumberGenerator.GetBytes", args, 1, 1); err != nil {
		return nil, err
	}
	n, err := argInt(args, 0)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, outOfRange("count")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, runtime.Exception("CryptographicException", err.Error())
	}
	return byteArray(buf), nil
}

// Guids are plain strings in the canonical dashed form.
func builtinNewGuid(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Guid.NewGuid", args, 0, 0); err != nil {
		return nil, err
	}
	return str(uuid.NewString()), nil
}

func builtinGuidParse(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Guid.Parse", args, 1, 1); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(argString(args, 0))
	if err != nil {
		return nil, runtime.Exception("FormatException", "Unrecognized Guid format.")
	}
	return str(id.String()), nil
}

func builtinToBase64(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Convert.ToBase64String", args, 1, 1); err != nil {
		return nil, err
	}
	data, err := bytesOf(args[0])
	if err != nil {
		return nil, err
	}
	return str(base64.StdEncoding.EncodeToString(data)), nil
}

func builtinFromBase64(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Convert.FromBase64String", args, 1, 1); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(argString(args, 0))
	if err != nil {
		return nil, runtime.Exception("FormatException", "The input is not a valid Base-64 string.")
	}
	return byteArray(data), nil
}

func builtinToHex(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Convert.ToHexString", args, 1, 1); err != nil {
		return nil, err
	}
	data, err := bytesOf(args[0])
	if err != nil {
		return nil, err
	}
	return str(strings.ToUpper(hex.EncodeToString(data))), nil
}

func builtinFromHex(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Convert.FromHexString", args, 1, 1); err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(argString(args, 0))
	if err != nil {
		return nil, runtime.Exception("FormatException", "The input is not a valid hex string.")
	}
	return byteArray(data), nil
}

// builtinBitConverterToString renders bytes as dash-separated hex pairs.
func builtinBitConverterToString(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("BitConverter.ToString", args, 1, 1); err != nil {
		return nil, err
	}
	data, err := bytesOf(args[0])
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(data))
	for idx, b := range data {
		parts[idx] = strings.ToUpper(hex.EncodeToString([]byte{b}))
	}
	return str(strings.Join(parts, "-")), nil
}
