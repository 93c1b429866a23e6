package physis

import "fmt"

// Config is a typed-variant settings map, kept in the teacher's shape
// (clarete-langlang's config.go) but reseeded with Physis's own
// defaults instead of a grammar-loader's.
type Config map[string]*cfgVal

// BackendTarget enumerates the four concrete backends spec §1
// describes.
type BackendTarget string

const (
	TargetReference BackendTarget = "reference"
	TargetCUDA      BackendTarget = "cuda"
	TargetMPI       BackendTarget = "mpi"
	TargetMPICUDA   BackendTarget = "mpi-cuda"
)

// NewConfig creates a Config primed with every default value the
// compiler core needs.
func NewConfig() *Config {
	m := make(Config)
	m.SetString("backend.target", string(TargetReference))
	m.SetBool("mpi_cuda.multistream_boundary", false)
	// spec §4.1's "declared maximum offset along d" used to widen the
	// halo when an irregular access has no statically observable bound.
	m.SetInt("halo.irregular_max_offset", 1)
	m.SetInt("cuda.block_x", 64)
	m.SetInt("cuda.block_y", 4)
	m.SetInt("cuda.block_z", 1)
	m.SetBool("optimizer.unconditional_get", true)
	return &m
}

type cfgValType int

const (
	cfgValType_Undefined cfgValType = iota
	cfgValType_Bool
	cfgValType_Int
	cfgValType_String
)

func (vt cfgValType) String() string {
	return map[cfgValType]string{
		cfgValType_Undefined: "undefined",
		cfgValType_Bool:      "bool",
		cfgValType_Int:       "int",
		cfgValType_String:    "string",
	}[vt]
}

type cfgVal struct {
	typ      cfgValType
	asBool   bool
	asInt    int
	asString string
}

func (v *cfgVal) assignType(vt cfgValType) {
	if v.typ != vt && v.typ != cfgValType_Undefined {
		panic(fmt.Sprintf("can't assign `%s` to type `%s`", vt, v.typ))
	}
	v.typ = vt
}

func (v *cfgVal) checkType(vt cfgValType) {
	if v.typ != vt {
		panic(fmt.Sprintf("can't retrieve `%s` from `%s` variable", vt, v.typ))
	}
}

func (c *Config) SetBool(path string, v bool) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Bool)
	(*c)[path].asBool = v
}

func (c *Config) SetInt(path string, v int) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Int)
	(*c)[path].asInt = v
}

func (c *Config) SetString(path string, v string) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_String)
	(*c)[path].asString = v
}

func (c *Config) GetBool(path string) bool {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Bool)
		return val.asBool
	}
	panic(fmt.Sprintf("bool setting `%s` does not exist", path))
}

func (c *Config) GetInt(path string) int {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Int)
		return val.asInt
	}
	panic(fmt.Sprintf("int setting `%s` does not exist", path))
}

func (c *Config) GetString(path string) string {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_String)
		return val.asString
	}
	panic(fmt.Sprintf("string setting `%s` does not exist", path))
}

// Target returns the configured BackendTarget.
func (c *Config) Target() BackendTarget {
	return BackendTarget(c.GetString("backend.target"))
}
