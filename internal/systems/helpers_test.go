package systems

// fakeIO is an in-memory IO for driving a single model.
type fakeIO struct {
	reals   map[string]float64
	bools   map[string]bool
	unbound map[string]bool

	outReal map[string]float64
	outBool map[string]bool
	outEnum map[string]int
}

func newFakeIO() *fakeIO {
	return &fakeIO{
		reals:   map[string]float64{},
		bools:   map[string]bool{},
		unbound: map[string]bool{},
		outReal: map[string]float64{},
		outBool: map[string]bool{},
		outEnum: map[string]int{},
	}
}

func (f *fakeIO) unbind(ports ...string) *fakeIO {
	for _, p := range ports {
		f.unbound[p] = true
	}
	return f
}

func (f *fakeIO) Bound(port string) bool   { return !f.unbound[port] }
func (f *fakeIO) Real(port string) float64 { return f.reals[port] }
func (f *fakeIO) Bool(port string) bool    { return f.bools[port] }
func (f *fakeIO) Enum(port string) int     { return 0 }

func (f *fakeIO) SetReal(p string, x float64) {
	if f.Bound(p) {
		f.outReal[p] = x
	}
}

func (f *fakeIO) SetBool(p string, b bool) {
	if f.Bound(p) {
		f.outBool[p] = b
	}
}

func (f *fakeIO) SetEnum(p string, o int) {
	if f.Bound(p) {
		f.outEnum[p] = o
	}
}

// mustModel instantiates a built-in model with parameter overrides.
func mustModel(spec ModelSpec, params map[string]float64) Model {
	p := make(Params, len(spec.Params))
	for k, v := range spec.Params {
		p[k] = v
	}
	for k, v := range params {
		p[k] = v
	}
	m, err := spec.New(p)
	if err != nil {
		panic(err)
	}
	return m
}
