package apperr

// User facing messages shared across handlers.
const (
	MsgInternal            = "حدث خطأ في الخادم"
	MsgInvalidJSON         = "بيانات الطلب غير صالحة"
	MsgInvalidID           = "المعرف غير صالح"
	MsgUnauthorized        = "يجب تسجيل الدخول"
	MsgInvalidLogin        = "البريد الإلكتروني أو كلمة المرور غير صحيحة"
	MsgForbidden           = "ليس لديك صلاحية للوصول"
	MsgHackathonNotFound   = "الهاكاثون غير موجود"
	MsgTeamNotFound        = "الفريق غير موجود"
	MsgParticipantNotFound = "المشارك غير موجود"
	MsgTemplateNotFound    = "قالب البريد غير موجود"
	MsgUserNotFound        = "المستخدم غير موجود"
	MsgRateLimited         = "عدد كبير من الطلبات، حاول لاحقاً"
)
