// Package messages holds the user-facing texts and keyboards of the bot.
// All texts use Telegram-style Markdown.
package messages

const (
	Welcome = "👋 *Bem-vindo ao Kernel6 Project!*\nEscolha uma opção:"
	Help    = "🤖 *Ajuda*\n\n" +
		"/start - Menu\n" +
		"/registrar - Registrar problema (também pelo botão)\n" +
		"/listar - Listar registros\n" +
		"/deletar - Excluir registro (senha)"

	AskCategory    = "📝 Qual categoria do problema?"
	AskTitle       = "📝 *Forneça um título para o problema:*\nEx: \"Poste de luz quebrado na Rua X\""
	AskDescription = "📝 *Agora, descreva o problema com detalhes:*"
	AskPhoto       = "📸 *Deseja enviar uma foto do problema?*"
	AskPhotoUpload = "📸 *Envie a foto agora.* Por favor, envie uma foto clara do problema."
	PhotoReceived  = "✅ *Foto recebida!* Agora informe o local."
	AskLocation    = "📍 *Onde fica o problema?* Forneça endereço ou referência."
	PhotoCaption   = "📸 *Foto do problema enviada*"
	PhotoExpected  = "⚠️ *Por favor, envie uma foto* ou clique em *Pular*."
	UseButtons     = "⚠️ Use os botões abaixo para continuar."

	TitleTooShort       = "⚠️ Título muito curto. Informe algo mais descritivo."
	TitleTooLong        = "⚠️ Título muito longo. Max 100 caracteres."
	DescriptionTooShort = "⚠️ Descrição muito curta. Informe mais detalhes."
	DescriptionTooLong  = "⚠️ Descrição muito longa. Max 1000 caracteres."
	LocationTooShort    = "⚠️ Local muito vago. Informe ponto de referência mais específico."

	Saved      = "✅ *Problema registrado com sucesso!*"
	SaveFailed = "❌ Erro ao salvar no Gist. Tente novamente mais tarde."
	Cancelled  = "❌ *Registro cancelado.*"
	NoDraft    = "❌ Nenhum problema encontrado para salvar."

	ListEmpty = "📋 Nenhum problema registrado ainda."

	AskPassword     = "🔐 Digite a senha de administrador:"
	WrongPassword   = "❌ Senha incorreta."
	NothingToDelete = "📭 Nenhum registro para excluir."
	ChooseRecord    = "🗑 *Selecione o registro que deseja excluir:*"
	ConfirmDelete   = "⚠ Tem certeza que deseja apagar?\nIsso *não poderá ser desfeito!*"
	Deleted         = "🗑 Registro excluído com sucesso!"
	DeleteNotSynced = "⚠️ Registro removido, mas não foi possível sincronizar com o Gist."
	InternalError   = "❌ Erro interno."

	UntitledLabel = "Sem título"
)

// Button labels.
const (
	LabelRegister   = "📝 Registrar problema"
	LabelList       = "📋 Listar registros"
	LabelDelete     = "🗑 Deletar registros"
	LabelHelp       = "❓ Ajuda"
	LabelBackToMenu = "⬅️ Voltar ao menu"
	LabelBack       = "⬅️ Voltar"
	LabelAddPhoto   = "📷 Adicionar foto"
	LabelSkipPhoto  = "⏭️ Pular"
	LabelConfirm    = "✅ SIM, CONFIRMAR"
	LabelCancel     = "❌ NÃO, CANCELAR"
	LabelYes        = "✅ Sim"
	LabelNo         = "❌ Não"
)
