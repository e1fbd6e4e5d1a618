package toolbind

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// auditedWeather wraps a weatherAPI and records every call it forwards.
type auditedWeather struct {
	next  weatherAPI
	calls *[]string
}

func (a *auditedWeather) GetWeather(city string, unit Unit) string {
	*a.calls = append(*a.calls, city)
	return "[audited] " + a.next.GetWeather(city, unit)
}

func (a *auditedWeather) Internal() string { return "hidden" }

// stubLookup is a Lookup with fixed answers.
type stubLookup struct {
	byName      map[string]any
	byType      []Entry
	intercepted map[any][]reflect.Type
}

func (s stubLookup) LookupByName(name string) (any, bool) {
	v, ok := s.byName[name]
	return v, ok
}

func (s stubLookup) LookupAllByType(reflect.Type) []Entry { return s.byType }

func (s stubLookup) IsIntercepted(v any) bool { return len(s.intercepted[v]) > 0 }

func (s stubLookup) InterceptedInterfaces(v any) []reflect.Type { return s.intercepted[v] }

func newWeatherContainer(t *testing.T) (*Container, *[]string) {
	t.Helper()
	var calls []string
	c := NewContainer()
	require.NoError(t, c.Register("weatherService", tools{}))
	require.NoError(t, c.Register("auditedWeather",
		&auditedWeather{next: tools{}, calls: &calls},
		Intercepted(reflect.TypeFor[weatherAPI]())))
	return c, &calls
}

func TestResolve_ByName(t *testing.T) {
	c, _ := newWeatherContainer(t)
	target, err := Resolve(c, ByName("weatherService"), "GetWeather")
	require.NoError(t, err)
	assert.Equal(t, tools{}, target.Receiver())
	assert.Equal(t, "github.com/skosovsky/toolbind.tools", target.Owner())
}

func TestResolve_ByName_NotFound(t *testing.T) {
	c, _ := newWeatherContainer(t)
	_, err := Resolve(c, ByName("missing"), "GetWeather")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "no object named 'missing' found")
}

func TestResolve_ByType_PrefersIntercepted(t *testing.T) {
	c, calls := newWeatherContainer(t)
	cb, err := FromLookup(c, ByTypeOf[weatherAPI](), "GetWeather", "Get weather",
		WithParamNames("city", "unit"))
	require.NoError(t, err)
	assert.Equal(t, "github.com/skosovsky/toolbind.weatherAPI", cb.Target().Owner())

	out, err := cb.Call(context.Background(), `{"city":"Barcelona","unit":"CELSIUS"}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "[audited] Weather in Barcelona: 23°CELSIUS", out)
	assert.Equal(t, []string{"Barcelona"}, *calls)
}

func TestResolve_ByType_FirstMatchWithoutInterception(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.Register("first", tools{}))
	require.NoError(t, c.Register("second", embedding{}))
	target, err := Resolve(c, ByTypeOf[weatherAPI](), "GetWeather")
	require.NoError(t, err)
	assert.Equal(t, tools{}, target.Receiver())
}

func TestResolve_ByType_NotFound(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.Register("plain", plain{}))
	_, err := Resolve(c, ByTypeOf[weatherAPI](), "GetWeather")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "no object of type 'github.com/skosovsky/toolbind.weatherAPI' found")
}

func TestResolve_InterceptedByName(t *testing.T) {
	c, calls := newWeatherContainer(t)
	target, err := Resolve(c, ByName("auditedWeather"), "GetWeather")
	require.NoError(t, err)
	cb, err := NewMethodCallback(target, "weather", WithParamNames("city", "unit"))
	require.NoError(t, err)
	_, err = cb.Call(context.Background(), `{"city":"Oslo","unit":"FAHRENHEIT"}`, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Oslo"}, *calls)
}

func TestResolve_InterceptedHidesNonInterfaceMethods(t *testing.T) {
	c, _ := newWeatherContainer(t)
	_, err := Resolve(c, ByName("auditedWeather"), "Internal")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "method 'Internal' not found in 'github.com/skosovsky/toolbind.weatherAPI'")
}

func TestResolve_MethodNotFound(t *testing.T) {
	c, _ := newWeatherContainer(t)
	_, err := Resolve(c, ByName("weatherService"), "Forecast")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "method 'Forecast' not found in 'github.com/skosovsky/toolbind.tools'")
}

func TestResolve_InvalidArguments(t *testing.T) {
	c, _ := newWeatherContainer(t)
	_, err := Resolve(nil, ByName("weatherService"), "GetWeather")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Resolve(c, ByName("weatherService"), "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Resolve(c, Key{}, "GetWeather")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestResolve_InterfaceOrderFirstWins(t *testing.T) {
	type greeter interface {
		GetWeather(city string, unit Unit) string
	}
	var calls []string
	wrapper := &auditedWeather{next: tools{}, calls: &calls}
	lookup := stubLookup{
		byName: map[string]any{"w": wrapper},
		intercepted: map[any][]reflect.Type{
			wrapper: {reflect.TypeFor[Enum](), reflect.TypeFor[greeter](), reflect.TypeFor[weatherAPI]()},
		},
	}
	target, err := Resolve(lookup, ByName("w"), "GetWeather")
	require.NoError(t, err)
	assert.Contains(t, target.Owner(), "greeter")
}

func TestResolve_CustomLookupByType(t *testing.T) {
	lookup := stubLookup{byType: []Entry{{Name: "a", Value: plain{}}, {Name: "b", Value: tools{}}}}
	target, err := Resolve(lookup, ByType(reflect.TypeFor[any]()), "Add")
	require.NoError(t, err)
	assert.Equal(t, plain{}, target.Receiver())
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "name weatherService", ByName("weatherService").String())
	assert.Equal(t, "type github.com/skosovsky/toolbind.weatherAPI", ByTypeOf[weatherAPI]().String())
}

func TestFromLookup_PropagatesErrors(t *testing.T) {
	c, _ := newWeatherContainer(t)
	cb, err := FromLookup(c, ByName("missing"), "GetWeather", "weather")
	assert.Nil(t, cb)
	assert.ErrorIs(t, err, ErrNotFound)

	cb, err = FromLookup(c, ByName("weatherService"), "GetWeather", "")
	assert.Nil(t, cb)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
