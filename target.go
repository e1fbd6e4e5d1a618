package toolbind

import (
	"reflect"
	"runtime"
	"strings"
)

// Target identifies exactly one callable unit: a method bound to a receiver, or a
// plain function (the "static" case, no receiver). Build one with MethodTarget,
// FuncTarget, NamedFuncTarget or Resolve. A Target is immutable.
type Target struct {
	receiver any
	name     string
	owner    string
	static   bool
	fn       reflect.Value // bound method value or function
	sig      reflect.Type  // signature without receiver
}

// MethodTarget binds the exported method named method on receiver.
// The lookup covers the receiver's full method set, including methods promoted from
// embedded fields. It fails with ErrNotFound if there is no such method.
func MethodTarget(receiver any, method string) (Target, error) {
	if receiver == nil {
		return Target{}, invalidArgumentf("receiver must not be nil")
	}
	v := reflect.ValueOf(receiver)
	m, ok := v.Type().MethodByName(method)
	if !ok {
		return Target{}, notFoundf("method '%s' not found in '%s'", method, typeName(v.Type()))
	}
	return boundTarget(receiver, v.Type(), m.Name), nil
}

// boundTarget binds method name on receiver; owner is the type scanned for the method.
func boundTarget(receiver any, owner reflect.Type, name string) Target {
	fn := reflect.ValueOf(receiver).MethodByName(name)
	return Target{
		receiver: receiver,
		name:     name,
		owner:    typeName(owner),
		fn:       fn,
		sig:      fn.Type(),
	}
}

// UnboundMethodTarget describes method of typ (a concrete type or an interface) without
// a receiver. Call Bind before building a callback from it.
func UnboundMethodTarget(typ reflect.Type, method string) (Target, error) {
	if typ == nil {
		return Target{}, invalidArgumentf("type must not be nil")
	}
	m, ok := typ.MethodByName(method)
	if !ok {
		return Target{}, notFoundf("method '%s' not found in '%s'", method, typeName(typ))
	}
	sig := m.Type
	if typ.Kind() != reflect.Interface {
		sig = dropReceiver(sig)
	}
	return Target{name: m.Name, owner: typeName(typ), sig: sig}, nil
}

// Bind attaches receiver to an unbound method target. The receiver's method must have
// the same signature as the one the target describes.
func (t Target) Bind(receiver any) (Target, error) {
	if t.static {
		return Target{}, invalidArgumentf("cannot bind a receiver to function %q", t.name)
	}
	if receiver == nil {
		return Target{}, invalidArgumentf("receiver must not be nil")
	}
	fn := reflect.ValueOf(receiver).MethodByName(t.name)
	if !fn.IsValid() {
		return Target{}, notFoundf("method '%s' not found in '%s'", t.name, typeName(reflect.TypeOf(receiver)))
	}
	if t.sig != nil && fn.Type() != t.sig {
		return Target{}, invalidArgumentf("method %q of %T has signature %v, want %v", t.name, receiver, fn.Type(), t.sig)
	}
	t.receiver = receiver
	t.fn = fn
	t.sig = fn.Type()
	return t, nil
}

func dropReceiver(sig reflect.Type) reflect.Type {
	in := make([]reflect.Type, 0, sig.NumIn()-1)
	for i := 1; i < sig.NumIn(); i++ {
		in = append(in, sig.In(i))
	}
	out := make([]reflect.Type, 0, sig.NumOut())
	for i := range sig.NumOut() {
		out = append(out, sig.Out(i))
	}
	return reflect.FuncOf(in, out, sig.IsVariadic())
}

// FuncTarget wraps a plain function. The name is the function's symbol name without
// its package path (e.g. "GetWeather" for pkg.GetWeather). Anonymous functions get
// compiler names such as "func1"; use NamedFuncTarget for those.
func FuncTarget(fn any) (Target, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return Target{}, invalidArgumentf("function must be a non-nil func, got %T", fn)
	}
	name := runtime.FuncForPC(v.Pointer()).Name()
	owner := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		owner, name = name[:i], name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	return Target{name: name, owner: owner, static: true, fn: v, sig: v.Type()}, nil
}

// NamedFuncTarget wraps a plain function under an explicit name.
func NamedFuncTarget(name string, fn any) (Target, error) {
	if strings.TrimSpace(name) == "" {
		return Target{}, invalidArgumentf("function name must not be empty")
	}
	t, err := FuncTarget(fn)
	if err != nil {
		return Target{}, err
	}
	t.name = name
	return t, nil
}

// Name returns the method or function name.
func (t Target) Name() string { return t.name }

// Receiver returns the bound receiver, nil for static targets.
func (t Target) Receiver() any { return t.receiver }

// Owner returns the name of the type (or package, for functions) the method was found in.
func (t Target) Owner() string { return t.owner }

// IsStatic reports whether the target is a plain function without receiver.
func (t Target) IsStatic() bool { return t.static }

// Signature returns the callable's function type, receiver excluded.
func (t Target) Signature() reflect.Type { return t.sig }

// hasMethod reports whether the target names a method or function at all.
func (t Target) hasMethod() bool { return t.name != "" && t.sig != nil }

// bound reports whether the target can be invoked.
func (t Target) bound() bool { return t.fn.IsValid() && (t.static || t.receiver != nil) }

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.PkgPath() == "" && t.Kind() == reflect.Pointer && t.Elem().PkgPath() != "" {
		return "*" + t.Elem().PkgPath() + "." + t.Elem().Name()
	}
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
