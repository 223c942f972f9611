// Package assistant answers teacher questions about the classroom app
// through an LLM provider.
package assistant

import (
	"context"
	"log/slog"
	"strings"
)

const appContext = `Você é o assistente do Orbitus Classroom RPG, um painel gamificado para
professores acompanharem o progresso dos alunos.

- Alunos são personagens de RPG: nível, XP, habilidades, aulas, bloqueios e metas.
- Cada aula registrada gera XP = nota x duração x peso do tema x 0,1. O nível é XP/100 + 1.
- O XP da aula é dividido igualmente entre as habilidades do tema; o resto é descartado.
- Bloqueios têm severidade de 1 a 3 e ficam ativos até serem resolvidos.
- Metas passam por pendente, em andamento e concluída.
- O dashboard mostra alunos sem aula há 7+ dias, maior evolução da semana,
  tópicos com mais bloqueios e tempo médio por tema.

Responda em português, de forma objetiva e técnica.`

const (
	UnavailableMessage = "Assistente indisponível: configure ANTHROPIC_API_KEY no ambiente da API."
	EmptyMessageReply  = `Envie uma mensagem (campo "message").`
	NoInsights         = "Nenhum insight no momento."
	NoReply            = "Sem resposta."
	errorReplyPrefix   = "Erro ao consultar o assistente: "

	insightsPrompt = "Com base no contexto, escreva em 2 ou 3 frases curtas sugestões de melhorias " +
		"ou prioridades para o acompanhamento da turma. Seja direto."
)

type Service struct {
	provider Provider
	logger   *slog.Logger
}

// NewService accepts a nil provider and then reports unavailable.
func NewService(provider Provider, logger *slog.Logger) *Service {
	return &Service{provider: provider, logger: logger}
}

func (s *Service) Available() bool {
	return s.provider != nil && s.provider.Available()
}

// Chat always returns a reply. Provider failures become a readable message.
func (s *Service) Chat(ctx context.Context, message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return EmptyMessageReply
	}
	if !s.Available() {
		return UnavailableMessage
	}

	reply, err := s.provider.Generate(ctx, appContext, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "assistant chat failed", "error", err)
		return errorReplyPrefix + err.Error()
	}
	if strings.TrimSpace(reply) == "" {
		return NoReply
	}
	return reply
}

func (s *Service) Insights(ctx context.Context) string {
	if !s.Available() {
		return UnavailableMessage
	}

	text, err := s.provider.Generate(ctx, appContext, insightsPrompt)
	if err != nil {
		s.logger.ErrorContext(ctx, "assistant insights failed", "error", err)
		return NoInsights
	}
	if strings.TrimSpace(text) == "" {
		return NoInsights
	}
	return text
}
