package patchwork

import "sort"

// Scale is the session-wide musical scale, used by note generating modules
// to pick pitches. Like the Transport, it is a singleton module.
type Scale struct {
	ModuleBase
	root  int
	scale string
}

// Scales lists the intervals of the known scales, in semitones from the
// root.
var Scales = map[string][]int{
	"chromatic":  {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	"major":      {0, 2, 4, 5, 7, 9, 11},
	"minor":      {0, 2, 3, 5, 7, 8, 10},
	"pentatonic": {0, 2, 4, 7, 9},
	"blues":      {0, 3, 5, 6, 7, 10},
}

func NewScale() *Scale {
	s := &Scale{scale: "major"}
	s.Bind(s, "scale")
	s.SetName("scale")
	s.SetSingleton(true)
	return s
}

func (s *Scale) Root() int         { return s.root }
func (s *Scale) ScaleName() string { return s.scale }

func (s *Scale) Set(root int, scale string) {
	if _, ok := Scales[scale]; ok {
		s.scale = scale
	}
	s.root = ((root % 12) + 12) % 12
}

// Quantize returns the nearest pitch in the scale, preferring the lower
// one on ties.
func (s *Scale) Quantize(pitch int) int {
	intervals := Scales[s.scale]
	best, bestDist := pitch, 1<<30
	octave := (pitch - s.root) / 12
	for o := octave - 1; o <= octave+1; o++ {
		for _, i := range intervals {
			p := s.root + o*12 + i
			d := p - pitch
			if d < 0 {
				d = -d
			}
			if d < bestDist || (d == bestDist && p < best) {
				best, bestDist = p, d
			}
		}
	}
	return best
}

// Degree returns the pitch of the nth degree of the scale above the root
// at the given octave. Negative degrees go below the root.
func (s *Scale) Degree(n, octave int) int {
	intervals := Scales[s.scale]
	l := len(intervals)
	o := n / l
	i := n % l
	if i < 0 {
		i += l
		o--
	}
	return (octave+o)*12 + s.root + intervals[i]
}

// ScaleNames returns the names of the known scales in sorted order.
func ScaleNames() []string {
	ret := make([]string, 0, len(Scales))
	for k := range Scales {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

func (s *Scale) LoadLayout(setup Setup, desc Descriptor) error {
	scale := desc.String("scale")
	if scale == "" {
		scale = "major"
	}
	s.Set(desc.Int("root", 0), scale)
	return nil
}

func (s *Scale) SaveLayout(desc Descriptor) {
	if s.root != 0 {
		desc["root"] = s.root
	}
	if s.scale != "major" {
		desc["scale"] = s.scale
	}
}

func (s *Scale) SaveState(w *StateWriter) {
	s.ModuleBase.SaveState(w)
	w.WriteInt(s.root)
	w.WriteString(s.scale)
}

func (s *Scale) LoadState(r *StateReader) error {
	if err := s.ModuleBase.LoadState(r); err != nil {
		return err
	}
	root, err := r.ReadInt()
	if err != nil {
		return err
	}
	scale, err := r.ReadString()
	if err != nil {
		return err
	}
	s.Set(root, scale)
	return nil
}
