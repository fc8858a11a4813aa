package runtime

import (
	"fmt"
	"strconv"
	"strings"
)

// ListValue backs List(Of T), ArrayList and the legacy Collection. Legacy
// collections index from 1; everything else from 0.
type ListValue struct {
	TypeName string
	Items    []Value
	OneBased bool
	// Keys maps lowercased string keys to items for Collection.Add(item, key).
	Keys map[string]Value
}

func (v *ListValue) Kind() Kind { return KindCollection }

func NewList(typeName string) *ListValue {
	return &ListValue{TypeName: typeName, Items: []Value{}, OneBased: strings.EqualFold(typeName, "Collection")}
}

// Index translates a user-visible index into a slice offset.
func (v *ListValue) Index(idx int) (int, error) {
	offset := idx
	if v.OneBased {
		offset--
	}
	if offset < 0 || offset >= len(v.Items) {
		return 0, IndexOutOfRange(idx, len(v.Items))
	}
	return offset, nil
}

func (v *ListValue) Add(item Value) {
	v.Items = append(v.Items, item)
}

func (v *ListValue) Insert(idx int, item Value) error {
	if v.OneBased {
		idx--
	}
	if idx < 0 || idx > len(v.Items) {
		return IndexOutOfRange(idx, len(v.Items))
	}
	v.Items = append(v.Items, nil)
	copy(v.Items[idx+1:], v.Items[idx:])
	v.Items[idx] = item
	return nil
}

func (v *ListValue) RemoveAt(offset int) {
	removed := v.Items[offset]
	v.Items = append(v.Items[:offset], v.Items[offset+1:]...)
	for key, item := range v.Keys {
		if item == removed {
			delete(v.Keys, key)
		}
	}
}

// Remove deletes the first item equal to item.
func (v *ListValue) Remove(item Value) bool {
	idx := v.IndexOf(item)
	if idx < 0 {
		return false
	}
	v.RemoveAt(idx)
	return true
}

// IndexOf returns the zero-based slice offset of item, or -1.
func (v *ListValue) IndexOf(item Value) int {
	for idx, el := range v.Items {
		if ValuesEqual(el, item) {
			return idx
		}
	}
	return -1
}

func (v *ListValue) Clear() {
	v.Items = v.Items[:0]
	v.Keys = nil
}

type QueueValue struct {
	Items []Value
}

func (v *QueueValue) Kind() Kind { return KindQueue }

func (v *QueueValue) Enqueue(item Value) {
	v.Items = append(v.Items, item)
}

func (v *QueueValue) Dequeue() (Value, error) {
	if len(v.Items) == 0 {
		return nil, Exception("InvalidOperationException", "Queue empty.")
	}
	head := v.Items[0]
	v.Items = v.Items[1:]
	return head, nil
}

func (v *QueueValue) Peek() (Value, error) {
	if len(v.Items) == 0 {
		return nil, Exception("InvalidOperationException", "Queue empty.")
	}
	return v.Items[0], nil
}

// StackValue stores items bottom-first; Items[len-1] is the top.
type StackValue struct {
	Items []Value
}

func (v *StackValue) Kind() Kind { return KindStack }

func (v *StackValue) Push(item Value) {
	v.Items = append(v.Items, item)
}

func (v *StackValue) Pop() (Value, error) {
	if len(v.Items) == 0 {
		return nil, Exception("InvalidOperationException", "Stack empty.")
	}
	top := v.Items[len(v.Items)-1]
	v.Items = v.Items[:len(v.Items)-1]
	return top, nil
}

func (v *StackValue) Peek() (Value, error) {
	if len(v.Items) == 0 {
		return nil, Exception("InvalidOperationException", "Stack empty.")
	}
	return v.Items[len(v.Items)-1], nil
}

// TopFirst returns the items in pop order.
func (v *StackValue) TopFirst() []Value {
	out := make([]Value, len(v.Items))
	for idx := range v.Items {
		out[idx] = v.Items[len(v.Items)-1-idx]
	}
	return out
}

// HashSetValue keeps insertion order for deterministic enumeration.
type HashSetValue struct {
	items []Value
	index map[string]int
}

func (v *HashSetValue) Kind() Kind { return KindHashSet }

func NewHashSet() *HashSetValue {
	return &HashSetValue{index: make(map[string]int)}
}

// Add returns false when an equal item is already present.
func (v *HashSetValue) Add(item Value) bool {
	key := KeyOf(item)
	if _, ok := v.index[key]; ok {
		return false
	}
	v.index[key] = len(v.items)
	v.items = append(v.items, item)
	return true
}

func (v *HashSetValue) Contains(item Value) bool {
	_, ok := v.index[KeyOf(item)]
	return ok
}

func (v *HashSetValue) Remove(item Value) bool {
	key := KeyOf(item)
	pos, ok := v.index[key]
	if !ok {
		return false
	}
	v.items = append(v.items[:pos], v.items[pos+1:]...)
	delete(v.index, key)
	for k, p := range v.index {
		if p > pos {
			v.index[k] = p - 1
		}
	}
	return true
}

func (v *HashSetValue) Items() []Value {
	return append([]Value(nil), v.items...)
}

func (v *HashSetValue) Count() int {
	return len(v.items)
}

func (v *HashSetValue) Clear() {
	v.items = nil
	v.index = make(map[string]int)
}

// DictionaryValue is an insertion-ordered map. String keys compare
// case-insensitively; other keys compare structurally.
type DictionaryValue struct {
	keys   []Value
	values []Value
	index  map[string]int
}

func (v *DictionaryValue) Kind() Kind { return KindDictionary }

func NewDictionary() *DictionaryValue {
	return &DictionaryValue{index: make(map[string]int)}
}

func (v *DictionaryValue) Get(key Value) (Value, bool) {
	pos, ok := v.index[KeyOf(key)]
	if !ok {
		return nil, false
	}
	return v.values[pos], true
}

// Set inserts or replaces. The first spelling of a string key is kept.
func (v *DictionaryValue) Set(key, value Value) {
	k := KeyOf(key)
	if pos, ok := v.index[k]; ok {
		v.values[pos] = value
		return
	}
	v.index[k] = len(v.keys)
	v.keys = append(v.keys, key)
	v.values = append(v.values, value)
}

// Add fails when the key exists, like Dictionary.Add.
func (v *DictionaryValue) Add(key, value Value) error {
	if v.ContainsKey(key) {
		return Exception("ArgumentException", fmt.Sprintf("An item with the same key has already been added. Key: %s", AsString(key)))
	}
	v.Set(key, value)
	return nil
}

func (v *DictionaryValue) ContainsKey(key Value) bool {
	_, ok := v.index[KeyOf(key)]
	return ok
}

func (v *DictionaryValue) ContainsValue(value Value) bool {
	for _, el := range v.values {
		if ValuesEqual(el, value) {
			return true
		}
	}
	return false
}

func (v *DictionaryValue) Remove(key Value) bool {
	k := KeyOf(key)
	pos, ok := v.index[k]
	if !ok {
		return false
	}
	v.keys = append(v.keys[:pos], v.keys[pos+1:]...)
	v.values = append(v.values[:pos], v.values[pos+1:]...)
	delete(v.index, k)
	for other, p := range v.index {
		if p > pos {
			v.index[other] = p - 1
		}
	}
	return true
}

func (v *DictionaryValue) Keys() []Value {
	return append([]Value(nil), v.keys...)
}

func (v *DictionaryValue) Values() []Value {
	return append([]Value(nil), v.values...)
}

func (v *DictionaryValue) Count() int {
	return len(v.keys)
}

func (v *DictionaryValue) Clear() {
	v.keys = nil
	v.values = nil
	v.index = make(map[string]int)
}

// KeyOf normalizes a value into a map key: strings fold case, numbers of
// every width share one namespace, reference values use identity, arrays
// compare element-wise.
func KeyOf(v Value) string {
	switch val := v.(type) {
	case nil, NothingValue:
		return "nil"
	case StringValue:
		return "s:" + strings.ToLower(val.Val)
	case CharValue:
		return "c:" + string(val.Val)
	case BoolValue:
		return "b:" + strconv.FormatBool(val.Val)
	case DateValue:
		return "d:" + strconv.FormatFloat(val.Val, 'g', -1, 64)
	case IntegerValue, LongValue, ByteValue:
		n, _ := AsLong(v)
		return "n:" + strconv.FormatInt(n, 10)
	case SingleValue, DoubleValue:
		f, _ := AsDouble(v)
		if f == float64(int64(f)) {
			return "n:" + strconv.FormatInt(int64(f), 10)
		}
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	case *ArrayValue:
		parts := make([]string, len(val.Elements))
		for idx, el := range val.Elements {
			parts[idx] = KeyOf(el)
		}
		return "a:[" + strings.Join(parts, ",") + "]"
	case *ObjectValue:
		if val.IsStruct {
			return "st:" + structKey(val)
		}
		return fmt.Sprintf("o:%p", val)
	default:
		return fmt.Sprintf("r:%p", v)
	}
}

func structKey(obj *ObjectValue) string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(obj.ClassName))
	for _, name := range sortedKeys(obj.Fields) {
		sb.WriteString("|" + name + "=" + KeyOf(obj.Fields[name]))
	}
	return sb.String()
}

// ValuesEqual is structural equality for scalars and arrays with case
// sensitive strings, and identity for reference values.
func ValuesEqual(a, b Value) bool {
	as, aok := a.(StringValue)
	bs, bok := b.(StringValue)
	if aok && bok {
		return as.Val == bs.Val
	}
	return KeyOf(a) == KeyOf(b)
}
