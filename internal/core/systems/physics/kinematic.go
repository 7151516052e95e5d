package physics

// KinematicConfig tunes the built-in integrator.
type KinematicConfig struct {
	Gravity    float64 `yaml:"gravity" env:"GRAVITY"`
	Elasticity float64 `yaml:"elasticity" env:"ELASTICITY"`
	Friction   float64 `yaml:"friction" env:"FRICTION"`
	MaxBodies  int     `yaml:"max_bodies" env:"MAX_BODIES"`
}

// DefaultKinematicConfig mirrors the constants the cube demo ran with.
func DefaultKinematicConfig() KinematicConfig {
	return KinematicConfig{
		Gravity:    20.0,
		Elasticity: 0.6,
		Friction:   15.0,
		MaxBodies:  128,
	}
}

var _ Simulation = (*Kinematic)(nil)

// Kinematic is a minimal rigid body integrator: explicit Euler with
// gravity along -Z and a ground plane at z = 0. Bodies are identified by
// their slot index; freed slots are reused lowest first.
type Kinematic struct {
	config KinematicConfig
	bodies []*BodyState
	count  int
}

func NewKinematic(config KinematicConfig) *Kinematic {
	if config.MaxBodies <= 0 {
		config.MaxBodies = DefaultKinematicConfig().MaxBodies
	}
	return &Kinematic{
		config: config,
		bodies: make([]*BodyState, config.MaxBodies),
	}
}

func (k *Kinematic) AddBody(state BodyState) (BodyID, error) {
	for i, body := range k.bodies {
		if body == nil {
			s := state
			k.bodies[i] = &s
			k.count++
			return BodyID(i), nil
		}
	}
	return -1, ErrTooManyBodies
}

func (k *Kinematic) RemoveBody(id BodyID) error {
	if !k.valid(id) {
		return ErrUnknownBody
	}
	k.bodies[id] = nil
	k.count--
	return nil
}

func (k *Kinematic) Body(id BodyID) (BodyState, bool) {
	if !k.valid(id) {
		return BodyState{}, false
	}
	return *k.bodies[id], true
}

func (k *Kinematic) SetBody(id BodyID, state BodyState) error {
	if !k.valid(id) {
		return ErrUnknownBody
	}
	*k.bodies[id] = state
	return nil
}

func (k *Kinematic) BodyCount() int { return k.count }

func (k *Kinematic) Step(deltaTime float64) {
	for _, body := range k.bodies {
		if body == nil || !body.Enabled {
			continue
		}
		k.integrate(body, deltaTime)
	}
}

func (k *Kinematic) integrate(body *BodyState, deltaTime float64) {
	body.LinearVelocity.Z -= k.config.Gravity * deltaTime
	body.Position = body.Position.Add(body.LinearVelocity.Scale(deltaTime))

	halfHeight := body.Scale * 0.5
	if body.Position.Z >= halfHeight {
		return
	}

	// resting on or sinking into the ground plane
	body.Position.Z = halfHeight
	if body.LinearVelocity.Z < 0 {
		body.LinearVelocity.Z = -body.LinearVelocity.Z * k.config.Elasticity
	}
	damping := 1.0 - k.config.Friction*deltaTime
	if damping < 0 {
		damping = 0
	}
	body.LinearVelocity.X *= damping
	body.LinearVelocity.Y *= damping
	body.AngularVelocity = body.AngularVelocity.Scale(damping)
	if body.LinearVelocity.Z < k.config.Gravity*deltaTime {
		body.LinearVelocity.Z = 0
	}
}

func (k *Kinematic) valid(id BodyID) bool {
	return id >= 0 && int(id) < len(k.bodies) && k.bodies[id] != nil
}
