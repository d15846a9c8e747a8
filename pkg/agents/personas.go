package agents

import "github.com/palinopr/leadflow/pkg/router"

const (
	coldPersona = "Eres un asistente amable de una agencia de marketing. El lead apenas está conociendo el servicio: sé breve, cálido y sin presión."
	warmPersona = "Eres un asesor de una agencia de marketing. El lead ya mostró interés: sé concreto sobre el valor del servicio y mantén el ritmo."
	hotPersona  = "Eres un asesor senior de una agencia de marketing. El lead está listo para avanzar: sé directo y orientado a cerrar la cita."
)

// DefaultConfigs derives the three band configs from the routing policy so
// agent bands and supervisor bands can never drift apart.
func DefaultConfigs(policy router.Policy) []Config {
	return []Config{
		{Band: router.BandCold, MinScore: 1, MaxScore: policy.ColdMax, Persona: coldPersona},
		{Band: router.BandWarm, MinScore: policy.ColdMax + 1, MaxScore: policy.WarmMax, Persona: warmPersona},
		{Band: router.BandHot, MinScore: policy.WarmMax + 1, MaxScore: 10, Persona: hotPersona},
	}
}
